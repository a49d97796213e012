package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/observability"
	"github.com/noah-isme/talent-tree-api/internal/progression"
	"github.com/noah-isme/talent-tree-api/internal/repository"
	"github.com/noah-isme/talent-tree-api/pkg/retry"
)

// Ledger reasons recorded on audit entries.
const (
	ReasonApprove   = "approve"
	ReasonBackfill  = "backfill"
	ReasonDelete    = "delete"
	ReasonRecord    = "record"
	ReasonReconcile = "reconcile"
)

// Delta is the signed balance change produced by a unit of work. A zero
// Amount leaves the balance untouched and writes no audit entry.
type Delta struct {
	Amount   int
	Source   string
	SourceID uint
	Reason   string
	Metadata map[string]interface{}
}

// Outcome describes a committed unit of work.
type Outcome struct {
	ProfileID uint
	Previous  int
	Balance   int
	Applied   bool
	Clamped   bool
	Delta     Delta
	Entry     models.LedgerEntry
}

// UnitOfWork mutates the event store inside the ledger transaction and
// returns the delta to apply. It may run more than once when the transaction
// is retried, so it must not leak state between attempts.
type UnitOfWork func(ctx context.Context, tx repository.Store, profile models.Profile) (Delta, error)

// BalanceObserver is notified after a balance change commits.
type BalanceObserver interface {
	BalanceChanged(ctx context.Context, event dto.BalanceEvent)
}

// LedgerOptions tunes the unit-of-work runner.
type LedgerOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
	TxTimeout   time.Duration
}

// LedgerService owns every mutation of a profile's talent balance.
type LedgerService interface {
	Execute(ctx context.Context, profileID uint, op string, work UnitOfWork) (Outcome, error)
	Run(ctx context.Context, op string, fn func(ctx context.Context) error) error
	Reconcile(ctx context.Context, profileID uint) (dto.ReconcileResponse, error)
	ReconcileAll(ctx context.Context) ([]dto.ReconcileResponse, error)
	List(ctx context.Context, profileID uint, req dto.LedgerListRequest) (dto.LedgerListResponse, error)
	Observe(observers ...BalanceObserver)
}

type ledgerService struct {
	store     repository.Store
	options   LedgerOptions
	locks     *profileLocks
	mu        sync.RWMutex
	observers []BalanceObserver
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewLedgerService constructs the ledger aggregator.
func NewLedgerService(store repository.Store, options LedgerOptions, logger zerolog.Logger, observers ...BalanceObserver) LedgerService {
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = 3
	}
	if options.RetryDelay < 0 {
		options.RetryDelay = 0
	}
	if options.TxTimeout <= 0 {
		options.TxTimeout = 5 * time.Second
	}

	return &ledgerService{
		store:     store,
		options:   options,
		locks:     newProfileLocks(),
		observers: observers,
		logger:    logger.With().Str("component", "ledger_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/talent-tree-api/internal/service/ledger"),
		now:       time.Now,
	}
}

func (s *ledgerService) Execute(ctx context.Context, profileID uint, op string, work UnitOfWork) (Outcome, error) {
	spanCtx, span := s.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.Int64("profile.id", int64(profileID)),
	))
	defer span.End()

	release, err := s.locks.acquire(spanCtx, profileID)
	if err != nil {
		err = newError(KindOperationFailed, op, "cancelled before the unit of work started", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	defer release()

	// From here on the caller can no longer cancel: the event write and its
	// delta commit together or not at all.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(spanCtx), s.options.TxTimeout)
	defer cancel()

	outcome, err := retry.DoWithData(runCtx, s.retrier(op, profileID), func(attemptCtx context.Context) (Outcome, error) {
		result, attemptErr := s.attempt(attemptCtx, profileID, op, work)
		if attemptErr != nil {
			return Outcome{}, classifyPersistence(op, attemptErr)
		}
		return result, nil
	})
	if err != nil {
		err = s.finalizeError(op, profileID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	span.SetAttributes(
		attribute.Bool("ledger.applied", outcome.Applied),
		attribute.Int("ledger.balance", outcome.Balance),
		attribute.Bool("ledger.clamped", outcome.Clamped),
	)

	s.afterCommit(runCtx, outcome)
	return outcome, nil
}

// Run executes a storage call that sits outside a unit of work under the
// same retry policy and error taxonomy as Execute. It takes no profile lock
// and stays cancellable by ctx.
func (s *ledgerService) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := s.retrier(op, 0).Do(ctx, func(attemptCtx context.Context) error {
		return classifyPersistence(op, fn(attemptCtx))
	})
	if err != nil {
		return s.finalizeError(op, 0, err)
	}
	return nil
}

func (s *ledgerService) retrier(op string, profileID uint) *retry.Retrier {
	return retry.New(
		retry.WithMaxAttempts(s.options.MaxAttempts),
		retry.WithInitialDelay(s.options.RetryDelay),
		retry.WithRetryIf(isRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			observability.LedgerRetries().WithLabelValues(op).Inc()
			s.logger.Warn().Err(err).
				Str("operation", op).
				Uint("profile_id", profileID).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("retrying ledger unit of work")
		}),
	)
}

func (s *ledgerService) attempt(ctx context.Context, profileID uint, op string, work UnitOfWork) (Outcome, error) {
	var outcome Outcome

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		profile, err := tx.Profiles().GetForUpdate(ctx, profileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		delta, err := work(ctx, tx, profile)
		if err != nil {
			return err
		}

		outcome = Outcome{
			ProfileID: profileID,
			Previous:  profile.TalentPoint,
			Balance:   profile.TalentPoint,
			Delta:     delta,
		}
		if delta.Amount == 0 {
			return nil
		}

		next, clamped := clampBalance(profile.TalentPoint, delta.Amount)
		if err := tx.Profiles().UpdateBalance(ctx, profileID, next); err != nil {
			return err
		}

		entry := models.LedgerEntry{
			OperationID:    uuid.NewString(),
			ProfileID:      profileID,
			Source:         delta.Source,
			SourceID:       delta.SourceID,
			Reason:         delta.Reason,
			RequestedDelta: delta.Amount,
			AppliedDelta:   next - profile.TalentPoint,
			BalanceBefore:  profile.TalentPoint,
			BalanceAfter:   next,
			Clamped:        clamped,
			Metadata:       ledgerMetadata(op, delta.Metadata),
		}
		if err := tx.Ledger().Create(ctx, &entry); err != nil {
			return err
		}

		outcome.Balance = next
		outcome.Applied = true
		outcome.Clamped = clamped
		outcome.Entry = entry
		return nil
	})

	return outcome, err
}

func (s *ledgerService) finalizeError(op string, profileID uint, err error) error {
	exhausted := errors.Is(err, retry.ErrExhausted)
	kind := KindOf(err)

	if exhausted || kind == KindPersistenceFailure || kind == KindOperationFailed || kind == "" {
		observability.LedgerFailures().WithLabelValues(op).Inc()
		s.logger.Error().Err(err).
			Str("operation", op).
			Uint("profile_id", profileID).
			Bool("retries_exhausted", exhausted).
			Msg("ledger unit of work failed")
		if kind == KindOperationFailed && !exhausted {
			return err
		}
		return newError(KindOperationFailed, op, "ledger update failed", err)
	}

	return err
}

func (s *ledgerService) afterCommit(ctx context.Context, outcome Outcome) {
	if !outcome.Applied {
		return
	}

	delta := outcome.Delta
	observability.LedgerDeltas().WithLabelValues(delta.Source, delta.Reason).Inc()

	if outcome.Clamped {
		observability.LedgerClamps().WithLabelValues(delta.Source).Inc()
		s.logger.Warn().
			Str("event", "ledger.clamped").
			Uint("profile_id", outcome.ProfileID).
			Int("previous", outcome.Previous).
			Int("requested_delta", delta.Amount).
			Int("balance", outcome.Balance).
			Str("source", delta.Source).
			Uint("source_id", delta.SourceID).
			Str("operation_id", outcome.Entry.OperationID).
			Msg("balance clamped at zero")
	}

	state := progression.Evaluate(outcome.Balance)
	event := dto.BalanceEvent{
		ProfileID:   outcome.ProfileID,
		Previous:    outcome.Previous,
		Balance:     outcome.Balance,
		Delta:       outcome.Balance - outcome.Previous,
		Clamped:     outcome.Clamped,
		Level:       state.Level,
		GrowthStage: state.GrowthStage,
		Source:      delta.Source,
		Reason:      delta.Reason,
		OccurredAt:  s.now().UTC(),
	}

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	for _, observer := range observers {
		observer.BalanceChanged(ctx, event)
	}
}

// Observe registers observers notified after every committed balance change.
func (s *ledgerService) Observe(observers ...BalanceObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observers...)
}

func (s *ledgerService) Reconcile(ctx context.Context, profileID uint) (dto.ReconcileResponse, error) {
	outcome, err := s.Execute(ctx, profileID, "reconcile", func(ctx context.Context, tx repository.Store, profile models.Profile) (Delta, error) {
		approved, err := tx.Submissions().SumApprovedPoints(ctx, profile.ID)
		if err != nil {
			return Delta{}, err
		}
		attendance, err := tx.Attendance().SumPoints(ctx, profile.ID)
		if err != nil {
			return Delta{}, err
		}

		expected := approved + attendance
		return Delta{
			Amount: expected - profile.TalentPoint,
			Source: models.LedgerSourceReconcile,
			Reason: ReasonReconcile,
			Metadata: map[string]interface{}{
				"approved_points":   approved,
				"attendance_points": attendance,
			},
		}, nil
	})
	if err != nil {
		return dto.ReconcileResponse{}, err
	}

	response := dto.ReconcileResponse{
		ProfileID: profileID,
		Previous:  outcome.Previous,
		Balance:   outcome.Balance,
		Drift:     outcome.Balance - outcome.Previous,
		Repaired:  outcome.Applied,
	}

	if response.Repaired {
		observability.LedgerReconcileDrift().Add(math.Abs(float64(response.Drift)))
		s.logger.Warn().
			Str("event", "ledger.drift_repaired").
			Uint("profile_id", profileID).
			Int("previous", response.Previous).
			Int("balance", response.Balance).
			Msg("balance drift repaired")
	}

	return response, nil
}

func (s *ledgerService) ReconcileAll(ctx context.Context) ([]dto.ReconcileResponse, error) {
	profiles, err := s.store.Profiles().List(ctx, repository.ProfileFilter{Role: models.RoleStudent})
	if err != nil {
		return nil, classifyPersistence("reconcile_all", err)
	}

	results := make([]dto.ReconcileResponse, 0, len(profiles))
	var errs []error
	for _, profile := range profiles {
		result, err := s.Reconcile(ctx, profile.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	return results, errors.Join(errs...)
}

func (s *ledgerService) List(ctx context.Context, profileID uint, req dto.LedgerListRequest) (dto.LedgerListResponse, error) {
	if _, err := s.store.Profiles().GetByID(ctx, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LedgerListResponse{}, ErrProfileNotFound
		}
		return dto.LedgerListResponse{}, classifyPersistence("list_ledger", err)
	}

	switch req.Source {
	case "", models.LedgerSourceActivity, models.LedgerSourceAttendance, models.LedgerSourceReconcile:
	default:
		return dto.LedgerListResponse{}, newError(KindValidation, "list_ledger", "unknown ledger source", nil)
	}

	page := maxInt(req.Page, 1)
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.LedgerEntryFilter{
		Page:        page,
		PageSize:    pageSize,
		ProfileID:   &profileID,
		Source:      req.Source,
		ClampedOnly: req.ClampedOnly,
	}

	entries, total, err := s.store.Ledger().List(ctx, filter)
	if err != nil {
		return dto.LedgerListResponse{}, classifyPersistence("list_ledger", err)
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewLedgerEntryResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}

	return dto.LedgerListResponse{Items: items, Pagination: pagination}, nil
}

// clampBalance applies amount to current and truncates the result at zero.
func clampBalance(current, amount int) (int, bool) {
	next := current + amount
	if next < 0 {
		return 0, true
	}
	return next, false
}

func ledgerMetadata(op string, extra map[string]interface{}) datatypes.JSONMap {
	metadata := datatypes.JSONMap{"operation": op}
	for key, value := range extra {
		metadata[key] = value
	}
	return metadata
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// profileLocks serialises units of work per profile inside this process.
type profileLocks struct {
	mu    sync.Mutex
	locks map[uint]*profileLock
}

type profileLock struct {
	sem  chan struct{}
	refs int
}

func newProfileLocks() *profileLocks {
	return &profileLocks{locks: make(map[uint]*profileLock)}
}

func (l *profileLocks) acquire(ctx context.Context, profileID uint) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	lock, ok := l.locks[profileID]
	if !ok {
		lock = &profileLock{sem: make(chan struct{}, 1)}
		l.locks[profileID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(profileID, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.drop(profileID, lock)
		})
	}, nil
}

func (l *profileLocks) drop(profileID uint, lock *profileLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, profileID)
	}
}
