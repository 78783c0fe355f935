package arenaservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenametrics "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/metrics"
	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
	arenascript "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/scripting"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/arena-engine/app/shared/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "ArenaService"

// Config holds the service settings that come from configuration.
type Config struct {
	DefaultCurrency string
	ReservationTTL  time.Duration
}

// ArenaService implements the Service interface.
type ArenaService struct {
	repo    arenadb.Repository
	logger  *slog.Logger
	metrics arenametrics.ArenaMetrics
	tracer  trace.Tracer
	db      *bun.DB

	cfg       Config
	clock     arenautil.Clock
	scripts   *arenascript.Engine
	roster    *arenaroster.Roster
	accounts  *arenaeconomy.Accounts
	publisher message.Publisher

	schedMu   sync.RWMutex
	scheduler arenadomain.Scheduler

	locks sync.Map
}

// Option configures optional collaborators.
type Option func(*ArenaService)

func WithConfig(cfg Config) Option                  { return func(s *ArenaService) { s.cfg = cfg } }
func WithClock(c arenautil.Clock) Option            { return func(s *ArenaService) { s.clock = c } }
func WithScripts(e *arenascript.Engine) Option      { return func(s *ArenaService) { s.scripts = e } }
func WithRoster(r *arenaroster.Roster) Option       { return func(s *ArenaService) { s.roster = r } }
func WithAccounts(a *arenaeconomy.Accounts) Option  { return func(s *ArenaService) { s.accounts = a } }
func WithPublisher(p message.Publisher) Option      { return func(s *ArenaService) { s.publisher = p } }
func WithScheduler(sc arenadomain.Scheduler) Option { return func(s *ArenaService) { s.scheduler = sc } }

// NewArenaService creates a new ArenaService.
func NewArenaService(
	repo arenadb.Repository,
	logger *slog.Logger,
	metrics arenametrics.ArenaMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *ArenaService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = arenametrics.NewNoop()
	}
	s := &ArenaService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		clock:   arenautil.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scripts == nil {
		s.scripts = arenascript.NewEngine(logger)
	}
	return s
}

// UseScheduler installs the scheduler once it exists. The queue needs the
// service to apply transitions, so it is built after the service.
func (s *ArenaService) UseScheduler(sc arenadomain.Scheduler) {
	s.schedMu.Lock()
	s.scheduler = sc
	s.schedMu.Unlock()
}

func (s *ArenaService) sched() arenadomain.Scheduler {
	s.schedMu.RLock()
	defer s.schedMu.RUnlock()
	return s.scheduler
}

// lock serialises work on one arena. Signups, transitions and builder edits
// all read-modify-write the whole aggregate.
func (s *ArenaService) lock(id arenadomain.ArenaID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// loadOptions binds the collaborators of a loaded arena to db.
func (s *ArenaService) loadOptions(db bun.IDB) arenadb.LoadOptions {
	deps := arenadomain.Collaborators{Clock: s.clock}
	if s.roster != nil {
		r := s.roster.With(db)
		deps.Characters = r
		deps.Ratings = r
	}
	opts := arenadb.LoadOptions{
		Deps:     deps,
		Programs: s.scripts.Resolver(s.programLoader(db)),
	}
	if s.accounts != nil {
		opts.Accounts = s.accounts.Resolve
	}
	return opts
}

func (s *ArenaService) programLoader(db bun.IDB) arenascript.Loader {
	return func(ctx context.Context, id arenadomain.ProgramID) (string, string, error) {
		p, err := s.repo.GetProgram(ctx, db, int64(id))
		if err != nil {
			return "", "", err
		}
		return p.Name, p.Source, nil
	}
}

// loadArena loads the aggregate, mapping a missing arena to a domain failure.
func (s *ArenaService) loadArena(ctx context.Context, db bun.IDB, id arenadomain.ArenaID) (*arenadomain.Arena, error) {
	a, err := s.repo.LoadArena(ctx, db, id, s.loadOptions(db))
	if err != nil {
		if errors.Is(err, arenadb.ErrNotFound) {
			return nil, fmt.Errorf("arena %d: %w", id, ErrArenaNotFound)
		}
		return nil, fmt.Errorf("failed to load arena: %w", err)
	}
	return a, nil
}

// withArena locks the arena, loads it inside a transaction, runs fn and
// saves the aggregate. Failures returned by fn roll back and are reported as
// domain failures; infrastructure errors are returned as errors.
func withArena[S any](
	s *ArenaService,
	ctx context.Context,
	id arenadomain.ArenaID,
	fn func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (S, error),
) (results.OperationResult[S, error], error) {
	unlock := s.lock(id)
	defer unlock()

	var result results.OperationResult[S, error]
	_, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error) {
		a, err := s.loadArena(ctx, db, id)
		if err != nil {
			if IsDomainFailure(err) {
				result = results.FailureResult[S, error](err)
				return result, errRollback
			}
			return result, err
		}
		if actor, ok := managerFrom(ctx); ok && !a.IsManager(actor) {
			result = results.FailureResult[S, error](fmt.Errorf("%w (%s)", ErrNotManager, a.Name))
			return result, errRollback
		}
		out, err := fn(ctx, db, a)
		if err != nil {
			if IsDomainFailure(err) {
				result = results.FailureResult[S, error](err)
				return result, errRollback
			}
			return result, err
		}
		if err := s.repo.SaveArena(ctx, db, a); err != nil {
			return result, fmt.Errorf("failed to save arena: %w", err)
		}
		result = results.SuccessResult[S, error](out)
		return result, nil
	})
	if errors.Is(err, errRollback) {
		return result, nil
	}
	return result, err
}

// errRollback aborts a transaction whose operation ended in a domain failure.
var errRollback = errors.New("rollback")

// publish sends a notification on the event bus. Failures are logged: the
// state change they describe is already committed.
func (s *ArenaService) publish(ctx context.Context, topic string, payload any) {
	if s.publisher == nil {
		return
	}
	msg, err := handlerwrapper.NewMessage(ctx, handlerwrapper.Result{Topic: topic, Payload: payload})
	if err == nil {
		err = s.publisher.Publish(topic, msg)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish arena notification",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}

func arenaIdent(id arenadomain.ArenaID) string { return strconv.FormatInt(int64(id), 10) }

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ArenaService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("arena_id", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("arena_id", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("arena_id", identifier),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("arena_id", identifier),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("arena_id", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("arena_id", identifier),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *ArenaService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

// unwrap converts a result into the (value, error) pair public methods return.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, nil
	}
	return *result.Success, nil
}
