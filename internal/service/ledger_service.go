// Package service coordinates the ledger with its store. LedgerService owns
// the in-memory ledger, serialises every operation behind one lock, and
// flushes the affected collections before an operation returns.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/referral-ledger/internal/errors"
	"github.com/referral-ledger/internal/ledger"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/models"
	"github.com/referral-ledger/internal/storage"
	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultLeaderboardSize is used when no size is configured.
const DefaultLeaderboardSize = 10

// Options configures a LedgerService.
type Options struct {
	// AdminID is the single administrator. Empty means nobody is admin.
	AdminID         string
	LeaderboardSize int
	Logger          *logging.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// LedgerService is the coordinating layer between callers and the ledger.
type LedgerService struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	store  storage.Store

	adminID         string
	leaderboardSize int
	logger          *logging.Logger
	now             func() time.Time
	newID           func() string
}

// StartResult is returned by Start.
type StartResult struct {
	User  models.Stats
	Bound bool
}

// CreditInfo describes a referral credit issued by RecordActivity.
type CreditInfo struct {
	ReferrerID   string
	ReferrerName string
	Tier         types.Tier
	Amount       decimal.Decimal
}

// ActivityResult is returned by RecordActivity. Credit is nil when no
// referral credit was issued.
type ActivityResult struct {
	Tier   types.Tier
	Tables int
	Credit *CreditInfo
}

// PendingReport is the administrator's pending-payout listing.
type PendingReport struct {
	MinPayout decimal.Decimal       `json:"minPayout"`
	Entries   []models.PendingEntry `json:"entries"`
}

// Open loads every collection from store, falling back to an empty users
// collection, an empty payout log and default settings when a collection is
// missing or corrupt, and immediately writes all three back. An unreachable
// store is an error.
func Open(ctx context.Context, store storage.Store, opts Options) (*LedgerService, error) {
	s := &LedgerService{
		store:           store,
		adminID:         opts.AdminID,
		leaderboardSize: opts.LeaderboardSize,
		logger:          opts.Logger,
		now:             opts.Now,
		newID:           opts.NewID,
	}
	if s.leaderboardSize <= 0 {
		s.leaderboardSize = DefaultLeaderboardSize
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}

	users, err := store.LoadUsers(ctx)
	if err = s.loadFallback(storage.CollectionUsers, err); err != nil {
		return nil, err
	}
	payouts, err := store.LoadPayouts(ctx)
	if err = s.loadFallback(storage.CollectionPayouts, err); err != nil {
		return nil, err
	}
	settings, err := store.LoadSettings(ctx)
	if err = s.loadFallback(storage.CollectionSettings, err); err != nil {
		return nil, err
	}
	if settings.ReferralPayouts == nil {
		settings = models.DefaultSettings()
	}

	s.ledger = ledger.New(users, payouts, settings)
	for _, verr := range s.ledger.Verify() {
		s.logger.WithError(verr).Warn("Loaded ledger is inconsistent")
	}

	if err := store.SaveSettings(ctx, s.ledger.Settings()); err != nil {
		return nil, apperrors.NewStorageError("save settings", err)
	}
	if err := store.SaveUsers(ctx, s.ledger.Users()); err != nil {
		return nil, apperrors.NewStorageError("save users", err)
	}
	if err := store.SavePayouts(ctx, s.ledger.Payouts()); err != nil {
		return nil, apperrors.NewStorageError("save payouts", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"users":   s.ledger.Len(),
		"payouts": len(s.ledger.Payouts()),
	}).Info("Ledger loaded")

	return s, nil
}

// loadFallback decides whether a load error can be replaced by defaults.
func (s *LedgerService) loadFallback(collection string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrCollectionNotFound):
		s.logger.WithField("collection", collection).Info("Collection not found, starting empty")
		return nil
	case errors.Is(err, storage.ErrCorruptCollection):
		s.logger.WithField("collection", collection).WithError(err).Warn("Collection is unreadable, using defaults")
		return nil
	default:
		return apperrors.NewStorageError("load "+collection, err)
	}
}

// AdminID returns the configured administrator id.
func (s *LedgerService) AdminID() string {
	return s.adminID
}

// Settings returns the settings snapshot.
func (s *LedgerService) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Settings()
}

// GetOrCreate returns the stats of the caller, creating the user on first
// contact.
func (s *LedgerService) GetOrCreate(ctx context.Context, identity models.Identity) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return models.Stats{}, err
	}
	return ledger.StatsOf(u), nil
}

func (s *LedgerService) getOrCreate(ctx context.Context, identity models.Identity) (*models.User, error) {
	if identity.ID == "" {
		return nil, apperrors.NewInvalidArgumentError("user", "missing caller id")
	}
	u, created, err := s.ledger.GetOrCreate(identity)
	if err != nil {
		return nil, apperrors.NewInternalError("create user", err)
	}
	if !created {
		return u, nil
	}

	if err := s.store.SaveUsers(ctx, s.ledger.Users()); err != nil {
		s.ledger.ForgetUser(u.ID)
		s.logger.WithField("user", u.ID).WithError(err).Error("Failed to persist new user")
		return nil, apperrors.NewStorageError("save users", err)
	}
	s.logger.WithField("user", u.ID).Info("User created")
	return u, nil
}

// Start registers the caller and, when args carry a referral code, binds
// the caller to that referrer. Invalid codes are ignored.
func (s *LedgerService) Start(ctx context.Context, identity models.Identity, args []string) (StartResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return StartResult{}, err
	}
	if len(args) == 0 || !s.ledger.BindReferrer(u, args[0]) {
		return StartResult{User: ledger.StatsOf(u)}, nil
	}
	if err := s.store.SaveUsers(ctx, s.ledger.Users()); err != nil {
		u.ReferrerID = ""
		s.logger.WithField("user", u.ID).WithError(err).Error("Failed to persist referral")
		return StartResult{}, apperrors.NewStorageError("save users", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user":     u.ID,
		"referrer": u.ReferrerID,
	}).Info("Referral bound")
	return StartResult{User: ledger.StatsOf(u), Bound: true}, nil
}

// RecordActivity logs one table at tier for the caller and credits the
// caller's referrer the first time the caller plays that tier.
func (s *LedgerService) RecordActivity(ctx context.Context, identity models.Identity, tier types.Tier) (ActivityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return ActivityResult{}, err
	}

	before := u.Clone()
	if err := s.ledger.LogTable(u, tier); err != nil {
		return ActivityResult{}, err
	}
	if err := s.store.SaveUsers(ctx, s.ledger.Users()); err != nil {
		*u = *before
		s.logger.WithField("user", u.ID).WithError(err).Error("Failed to persist table activity")
		return ActivityResult{}, apperrors.NewStorageError("save users", err)
	}
	result := ActivityResult{Tier: tier, Tables: u.Tables[tier]}

	var referrerBefore *models.User
	if referrer, ok := s.ledger.User(u.ReferrerID); ok {
		referrerBefore = referrer.Clone()
	}
	before = u.Clone()

	credit, err := s.ledger.CreditReferrer(u, tier)
	if err != nil {
		// The table is already saved; the credit stays due.
		s.logger.WithFields(map[string]interface{}{
			"user":     u.ID,
			"tier":     tier,
			"referrer": u.ReferrerID,
		}).WithError(err).Error("Failed to credit referrer")
		return result, nil
	}
	if credit == nil {
		s.logger.WithFields(map[string]interface{}{
			"user": u.ID,
			"tier": tier,
		}).Info("Table logged")
		return result, nil
	}

	if err := s.store.SaveUsers(ctx, s.ledger.Users()); err != nil {
		*u = *before
		*credit.Referrer = *referrerBefore
		s.logger.WithFields(map[string]interface{}{
			"user":     u.ID,
			"referrer": credit.Referrer.ID,
		}).WithError(err).Error("Failed to persist referral credit")
		return ActivityResult{}, apperrors.NewStorageError("save users", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user":     u.ID,
		"tier":     tier,
		"referrer": credit.Referrer.ID,
		"amount":   credit.Amount.String(),
	}).Info("Referral credited")

	result.Credit = &CreditInfo{
		ReferrerID:   credit.Referrer.ID,
		ReferrerName: credit.Referrer.DisplayName(),
		Tier:         credit.Tier,
		Amount:       credit.Amount,
	}
	return result, nil
}

// Stats returns the projection for a known user.
func (s *LedgerService) Stats(userID string) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.ledger.Stats(userID)
	if !ok {
		return models.Stats{}, apperrors.NewUserNotFoundError(userID)
	}
	return stats, nil
}

// Leaderboard returns the top n users by total earnings. A non-positive n
// uses the configured size.
func (s *LedgerService) Leaderboard(n int) []models.LeaderboardEntry {
	if n <= 0 {
		n = s.leaderboardSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Leaderboard(n)
}

// Pending lists users whose pending balance reached the minimum payout.
// Administrator only.
func (s *LedgerService) Pending(callerID string) (PendingReport, error) {
	if err := ledger.AuthorizeAdmin(callerID, s.adminID); err != nil {
		return PendingReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	minPayout := s.ledger.Settings().MinPayout
	return PendingReport{
		MinPayout: minPayout,
		Entries:   s.ledger.PendingList(minPayout),
	}, nil
}

// Payouts returns the payout log. Administrator only.
func (s *LedgerService) Payouts(callerID string) ([]models.Payout, error) {
	if err := ledger.AuthorizeAdmin(callerID, s.adminID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payouts := s.ledger.Payouts()
	if payouts == nil {
		payouts = []models.Payout{}
	}
	return payouts, nil
}

// MarkPaid handles the "markpaid <userId> <amount>" command. Authorization
// is checked before the arguments.
func (s *LedgerService) MarkPaid(ctx context.Context, callerID string, args []string) (models.Payout, error) {
	if err := ledger.AuthorizeAdmin(callerID, s.adminID); err != nil {
		return models.Payout{}, err
	}
	if len(args) != 2 {
		return models.Payout{}, apperrors.NewInvalidArgumentError("args", "usage: markpaid <userId> <amount>")
	}
	amount, err := ledger.ParseAmount(args[1])
	if err != nil {
		return models.Payout{}, err
	}
	return s.ApplyPayout(ctx, callerID, args[0], amount)
}

// ApplyPayout moves amount from the target's pending balance to paid and
// records the payout. Administrator only.
func (s *LedgerService) ApplyPayout(ctx context.Context, callerID, targetID string, amount decimal.Decimal) (models.Payout, error) {
	if err := ledger.AuthorizeAdmin(callerID, s.adminID); err != nil {
		return models.Payout{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payout, err := s.ledger.ApplyPayout(targetID, amount, s.newID(), s.now())
	if err != nil {
		return models.Payout{}, err
	}

	if err := s.persistPayout(ctx); err != nil {
		if rerr := s.ledger.RevertPayout(payout); rerr != nil {
			s.logger.WithError(rerr).Error("Failed to revert payout")
		}
		s.resyncUsers(ctx)
		s.logger.WithFields(map[string]interface{}{
			"user":   targetID,
			"amount": amount.String(),
		}).WithError(err).Error("Failed to persist payout")
		return models.Payout{}, apperrors.NewStorageError("save payout", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user":   targetID,
		"amount": amount.String(),
		"payout": payout.ID,
	}).Info("Payout recorded")
	return payout, nil
}

func (s *LedgerService) persistPayout(ctx context.Context) error {
	users, payouts := s.ledger.Users(), s.ledger.Payouts()
	if atomic, ok := s.store.(storage.AtomicSaver); ok {
		return atomic.SaveUsersAndPayouts(ctx, users, payouts)
	}
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return err
	}
	return s.store.SavePayouts(ctx, payouts)
}

// resyncUsers rewrites the users collection after a failed non-atomic
// payout so that the stored balances match memory again.
func (s *LedgerService) resyncUsers(ctx context.Context) {
	if _, ok := s.store.(storage.AtomicSaver); ok {
		return
	}
	if err := s.store.SaveUsers(ctx, s.ledger.Users()); err != nil {
		s.logger.WithError(err).Error("Failed to resync users after payout failure")
	}
}

// Check reports ledger inconsistencies. It is used by the health endpoint.
func (s *LedgerService) Check() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Verify()
}

// Close closes the store.
func (s *LedgerService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}
