package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"Vouch/internal/core/users"
)

// MaxListLimit caps a single page of cached users.
const MaxListLimit = 1000

type postgresUserRepo struct {
	db *sql.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) users.UserRepository {
	return &postgresUserRepo{db: db}
}

const userColumns = `did, first_name, last_name, passport_no, birthday, doc_file_name,
	user_info_cid, file_hash, wallet, created_at, updated_at`

// Upsert inserts the record or replaces the cached one for the same DID
func (r *postgresUserRepo) Upsert(ctx context.Context, rec *users.LocalUserRecord) error {
	query := `
		INSERT INTO registered_users (did, first_name, last_name, passport_no, birthday,
			doc_file_name, user_info_cid, file_hash, wallet)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (did) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			passport_no = EXCLUDED.passport_no,
			birthday = EXCLUDED.birthday,
			doc_file_name = EXCLUDED.doc_file_name,
			user_info_cid = EXCLUDED.user_info_cid,
			file_hash = EXCLUDED.file_hash,
			wallet = EXCLUDED.wallet,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		rec.DIDID, rec.FirstName, rec.LastName, rec.PassportNo, rec.Birthday,
		rec.DocFileName, rec.UserInfoCID, rec.FileHash, rec.Wallet,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert registered user: %w", err)
	}
	return nil
}

// GetByDID retrieves a cached registration by DID
func (r *postgresUserRepo) GetByDID(ctx context.Context, did string) (*users.LocalUserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM registered_users WHERE did = $1`

	rec, err := scanUser(r.db.QueryRowContext(ctx, query, did))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registered user by DID: %w", err)
	}
	return rec, nil
}

// List returns cached registrations, newest first
func (r *postgresUserRepo) List(ctx context.Context, limit, offset int) ([]*users.LocalUserRecord, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + userColumns + ` FROM registered_users ORDER BY created_at DESC, did LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered users: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var result []*users.LocalUserRecord
	for rows.Next() {
		rec, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registered user row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registered user rows: %w", err)
	}
	return result, nil
}

// Delete removes a cached registration. The on-chain record is untouched.
func (r *postgresUserRepo) Delete(ctx context.Context, did string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registered_users WHERE did = $1`, did)
	if err != nil {
		return fmt.Errorf("failed to delete registered user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*users.LocalUserRecord, error) {
	rec := &users.LocalUserRecord{}
	err := row.Scan(&rec.DIDID, &rec.FirstName, &rec.LastName, &rec.PassportNo, &rec.Birthday,
		&rec.DocFileName, &rec.UserInfoCID, &rec.FileHash, &rec.Wallet, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
