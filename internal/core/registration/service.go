package registration

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"Vouch/internal/core/content"
	"Vouch/internal/core/registry"
	"Vouch/internal/core/session"
	"Vouch/internal/core/users"
)

// DefaultFee is 0.01 ether, in wei.
var DefaultFee = big.NewInt(10_000_000_000_000_000)

// DefaultConfirmTimeout bounds the wait for a submitted transaction.
const DefaultConfirmTimeout = 5 * time.Minute

// Config tunes the registration service. Zero values select defaults.
type Config struct {
	Fee            *big.Int
	ConfirmTimeout time.Duration
	// Observe, when set, is called on every step transition.
	Observe func(attemptID uuid.UUID, step Step)
	// Now is the clock used for birthday validation.
	Now func() time.Time
}

type registrationService struct {
	dids     DIDGenerator
	content  ContentStore
	wallet   Wallet
	registry Registry
	users    UserIndexer
	cfg      Config
	inFlight atomic.Bool
}

// NewRegistrationService wires the registration workflow.
func NewRegistrationService(dids DIDGenerator, store ContentStore, wallet Wallet, reg Registry, indexer UserIndexer, cfg Config) Service {
	if cfg.Fee == nil {
		cfg.Fee = DefaultFee
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &registrationService{
		dids:     dids,
		content:  store,
		wallet:   wallet,
		registry: reg,
		users:    indexer,
		cfg:      cfg,
	}
}

func (s *registrationService) Fee() *big.Int {
	return new(big.Int).Set(s.cfg.Fee)
}

func (s *registrationService) Register(ctx context.Context, req Request) (*Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrAttemptInFlight
	}
	defer s.inFlight.Store(false)

	attempt := newAttempt(s.cfg.Observe)
	log := slog.With("attempt", attempt.ID.String())

	from, err := s.precheck(ctx, req)
	if err != nil {
		log.Info("registration rejected before start", "error", err)
		return nil, attempt.fail(err)
	}

	if err := attempt.advance(StepGeneratingDID); err != nil {
		return nil, attempt.fail(err)
	}
	didStr, err := s.dids.Generate()
	if err != nil {
		return nil, attempt.fail(err)
	}
	log = log.With("did", didStr)

	if err := attempt.advance(StepStoringProfile); err != nil {
		return nil, attempt.fail(err)
	}
	profile := req.Profile
	profile.DID = didStr
	profileRec, err := s.content.StoreProfile(ctx, profile)
	if err != nil {
		return nil, attempt.fail(err)
	}

	if err := attempt.advance(StepStoringDocument); err != nil {
		return nil, attempt.fail(err)
	}
	docRec, err := s.content.StoreDocument(ctx, req.Document)
	if err != nil {
		return nil, attempt.fail(err)
	}

	if err := attempt.advance(StepSubmittingTransaction); err != nil {
		return nil, attempt.fail(err)
	}
	// Once handed to the wallet the transaction cannot be recalled, so the
	// wait for inclusion outlives the caller's context.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ConfirmTimeout)
	defer cancel()
	receipt, err := s.registry.RegisterUser(txCtx, from, didStr, profileRec.CID, docRec.CID, s.Fee())
	if err != nil {
		log.Warn("registration transaction failed", "error", err)
		return nil, attempt.fail(err)
	}

	if err := attempt.advance(StepConfirmed); err != nil {
		return nil, attempt.fail(err)
	}

	record := &users.LocalUserRecord{
		FirstName:   req.Profile.FirstName,
		LastName:    req.Profile.LastName,
		PassportNo:  req.Profile.PassportNo,
		Birthday:    req.Profile.Birthday,
		DocFileName: req.Document.Name,
		DIDID:       didStr,
		UserInfoCID: profileRec.CID,
		FileHash:    docRec.CID,
		Wallet:      from.Hex(),
	}
	// The chain is authoritative; a cache miss is repaired by sync-registry.
	if err := s.users.IndexUser(txCtx, record); err != nil {
		log.Error("failed to cache confirmed registration", "error", err)
	}

	result := &Result{
		AttemptID: attempt.ID,
		Record:    record,
		TxHash:    receipt.TxHash.Hex(),
		History:   attempt.History(),
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}

	log.Info("registration confirmed", "tx", result.TxHash, "block", result.BlockNumber, "profile_cid", profileRec.CID, "document_cid", docRec.CID)
	return result, nil
}

// precheck runs every check that must pass before leaving Idle.
func (s *registrationService) precheck(ctx context.Context, req Request) (common.Address, error) {
	if err := req.Profile.Validate(s.cfg.Now()); err != nil {
		return common.Address{}, err
	}
	if err := content.ValidateDocumentType(req.Document.MediaType); err != nil {
		return common.Address{}, err
	}
	if len(req.Document.Data) == 0 {
		return common.Address{}, content.ErrEmptyDocument
	}

	from, err := s.wallet.Account()
	if err != nil {
		return common.Address{}, err
	}

	state, err := s.wallet.RefreshBalance(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if state.BalanceWei == nil || state.BalanceWei.Cmp(s.cfg.Fee) < 0 {
		have := "unknown"
		if b := state.Balance(); b != nil {
			have = b.String()
		}
		return common.Address{}, fmt.Errorf("%w: balance %s ETH is below the %s ETH registration fee",
			registry.ErrInsufficientFunds, have, session.WeiToEther(s.cfg.Fee).String())
	}
	return from, nil
}
