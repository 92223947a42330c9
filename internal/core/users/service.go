package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"Vouch/internal/did"
)

type userService struct {
	userRepo UserRepository
	chain    Chain
	profiles ProfileReader
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository, chain Chain, profiles ProfileReader) UserService {
	return &userService{
		userRepo: userRepo,
		chain:    chain,
		profiles: profiles,
	}
}

func (s *userService) IndexUser(ctx context.Context, rec *LocalUserRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := s.userRepo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to index user %s: %w", rec.DIDID, err)
	}
	return nil
}

func (s *userService) GetCachedUser(ctx context.Context, didStr string) (*LocalUserRecord, error) {
	didStr = strings.TrimSpace(didStr)
	if didStr == "" {
		return nil, &InvalidRecordError{Field: "didId", Reason: "is required"}
	}
	return s.userRepo.GetByDID(ctx, didStr)
}

func (s *userService) ListRegisteredDIDs(ctx context.Context) ([]string, error) {
	dids, err := s.chain.GetAllRegisteredUsersDIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered users: %w", err)
	}
	return dids, nil
}

func (s *userService) GetUserDetails(ctx context.Context, didStr string) (*UserDetails, error) {
	info, err := s.chain.GetUserInfo(ctx, didStr)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.RetrieveProfile(ctx, info.ProfileCID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", didStr, err)
	}

	return &UserDetails{
		DID:           didStr,
		Profile:       profile,
		ProfileCID:    info.ProfileCID,
		DocumentCID:   info.DocumentHash,
		DepositAmount: info.DepositAmount,
		Wallet:        info.Wallet.Hex(),
	}, nil
}

func (s *userService) SyncFromChain(ctx context.Context) (*SyncResult, error) {
	dids, err := s.ListRegisteredDIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Seen: len(dids)}
	for _, d := range dids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.syncOne(ctx, d); err != nil {
			slog.Warn("failed to sync registered user", "did", d, "error", err)
			result.Failed++
			continue
		}
		result.Indexed++
	}

	slog.Info("user cache synced from chain", "seen", result.Seen, "indexed", result.Indexed, "failed", result.Failed)
	return result, nil
}

func (s *userService) syncOne(ctx context.Context, didStr string) error {
	details, err := s.GetUserDetails(ctx, didStr)
	if err != nil {
		return err
	}

	rec := &LocalUserRecord{
		FirstName:   details.Profile.FirstName,
		LastName:    details.Profile.LastName,
		PassportNo:  details.Profile.PassportNo,
		Birthday:    details.Profile.Birthday,
		DIDID:       didStr,
		UserInfoCID: details.ProfileCID,
		FileHash:    details.DocumentCID,
		Wallet:      details.Wallet,
	}

	// The contract does not know the uploaded file name; keep the cached one.
	existing, err := s.userRepo.GetByDID(ctx, didStr)
	switch {
	case err == nil:
		rec.DocFileName = existing.DocFileName
	case !errors.Is(err, ErrUserNotFound):
		return err
	}

	return s.IndexUser(ctx, rec)
}

func validateRecord(rec *LocalUserRecord) error {
	if rec == nil {
		return &InvalidRecordError{Field: "record", Reason: "is required"}
	}
	if !did.ValidateDID(rec.DIDID) {
		return &InvalidRecordError{Field: "didId", Reason: "must be a valid DID"}
	}
	if rec.UserInfoCID == "" {
		return &InvalidRecordError{Field: "userInfoCid", Reason: "is required"}
	}
	if rec.FileHash == "" {
		return &InvalidRecordError{Field: "fileHash", Reason: "is required"}
	}
	return nil
}
