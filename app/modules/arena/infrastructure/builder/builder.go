// Package arenabuilder implements the text command surface arena managers
// use to configure their arena: "<noun> <verb> [args]".
package arenabuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"golang.org/x/time/rate"
)

const internalErrorMessage = "Something went wrong. Please try again."

// request is one parsed command.
type request struct {
	actor arenadomain.CharacterID
	arena *arenaservice.ArenaInfo
	args  args
}

type handler func(ctx context.Context, b *Builder, r *request) (string, error)

type noun struct {
	verbs map[string]handler
	usage string
}

var nouns map[string]noun

func init() {
	nouns = map[string]noun{
		"arena":   {verbs: arenaVerbs, usage: "arena show|manager|room|funds|bank"},
		"program": {verbs: programVerbs, usage: "program set"},
		"class":   {verbs: classVerbs, usage: "class create|rename|desc|prog|npcprog|resurrect|stagename|colour|delete"},
		"type": {verbs: typeVerbs, usage: "type create|rename|byo|registration|preparation|timelimit|betting|" +
			"appearance|victory|intro|scoring|resolution|elimination|autoschedule|clone|delete"},
		"side":  {verbs: sideVerbs, usage: "side add|remove|capacity|policy|rating|npc|autofill|class|outfit|npcloader"},
		"event": {verbs: eventVerbs, usage: "event schedule|abort|advance|outcome|reserve|unreserve|show|archive"},
	}
}

// Builder runs builder commands against the arena service.
type Builder struct {
	service arenaservice.Service
	logger  *slog.Logger
	clock   arenautil.Clock

	every rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[arenadomain.CharacterID]*actorLimiter
	swept    time.Time
}

type actorLimiter struct {
	*rate.Limiter
	seen time.Time
}

// minLimiterIdle is how long an actor's limiter survives without commands.
const minLimiterIdle = 10 * time.Minute

type Option func(*Builder)

// WithClock sets the clock relative times are parsed against.
func WithClock(c arenautil.Clock) Option { return func(b *Builder) { b.clock = c } }

// WithRateLimit allows each actor burst commands, refilled at limit per second.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(b *Builder) {
		b.every = limit
		b.burst = burst
	}
}

func NewBuilder(service arenaservice.Service, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		service:  service,
		logger:   logger.With(attr.String("component", "arena_builder")),
		clock:    arenautil.RealClock{},
		every:    rate.Every(500 * time.Millisecond),
		burst:    5,
		limiters: make(map[arenadomain.CharacterID]*actorLimiter),
	}
	for _, opt := range opts {
		opt(b)
	}
	// A limiter idle long enough to refill its burst carries no state.
	b.idle = minLimiterIdle
	if b.every > 0 && b.every != rate.Inf {
		if full := time.Duration(float64(b.burst) / float64(b.every) * float64(time.Second)); full > b.idle {
			b.idle = full
		}
	}
	return b
}

// BuildingCommand runs one command for actor on arenaID. ok is false when
// the command was rejected; message is always meant for the actor.
func (b *Builder) BuildingCommand(ctx context.Context, actor arenadomain.CharacterID, arenaID arenadomain.ArenaID, command string) (ok bool, message string) {
	ctxLogger := b.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.Int64("actor_id", int64(actor)),
		attr.Int64("arena_id", int64(arenaID)),
		attr.String("command", command),
	)

	if !b.limiter(actor).AllowN(b.clock.Now(), 1) {
		ctxLogger.WarnContext(ctx, "Builder command rate limited")
		return false, "You are sending commands too quickly. Slow down."
	}

	words := tokenize(command)
	n, found := nouns[strings.ToLower(words.At(0))]
	if !found {
		return false, "Usage: " + usageList()
	}
	h, found := n.verbs[strings.ToLower(words.At(1))]
	if !found {
		return false, "Usage: " + n.usage
	}

	info, err := b.service.GetArena(ctx, arenaID)
	if err != nil {
		return b.reply(ctx, ctxLogger, "", err)
	}
	if !slices.Contains(info.Managers, actor) {
		return false, "Only managers of " + info.Name + " may do that."
	}

	ctx = arenaservice.AsManager(ctx, actor)
	msg, err := h(ctx, b, &request{actor: actor, arena: info, args: words.shift(2)})
	return b.reply(ctx, ctxLogger, msg, err)
}

func (b *Builder) reply(ctx context.Context, logger *slog.Logger, msg string, err error) (bool, string) {
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Builder command applied")
		return true, msg
	case isUsage(err):
		return false, err.Error()
	case arenaservice.IsDomainFailure(err):
		logger.InfoContext(ctx, "Builder command refused", attr.Error(err))
		return false, failureMessage(err)
	default:
		logger.ErrorContext(ctx, "Builder command failed", attr.Error(err))
		return false, internalErrorMessage
	}
}

func (b *Builder) limiter(actor arenadomain.CharacterID) *rate.Limiter {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.swept) >= b.idle {
		for id, l := range b.limiters {
			if now.Sub(l.seen) >= b.idle {
				delete(b.limiters, id)
			}
		}
		b.swept = now
	}
	l, ok := b.limiters[actor]
	if !ok {
		l = &actorLimiter{Limiter: rate.NewLimiter(b.every, b.burst)}
		b.limiters[actor] = l
	}
	l.seen = now
	return l.Limiter
}

func (b *Builder) trackedActors() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.limiters)
}

// mutate runs fn inside an arena transaction and returns its message.
func (b *Builder) mutate(ctx context.Context, r *request, fn func(ctx context.Context, m *arenaservice.Session) (string, error)) (string, error) {
	var msg string
	err := b.service.MutateArena(ctx, r.arena.ID, func(ctx context.Context, m *arenaservice.Session) error {
		var err error
		msg, err = fn(ctx, m)
		return err
	})
	return msg, err
}

func usageList() string {
	names := make([]string, 0, len(nouns))
	for name := range nouns {
		names = append(names, name)
	}
	sort.Strings(names)
	return "<" + strings.Join(names, "|") + "> <verb> [arguments]"
}

// failureMessage turns a domain failure into a sentence.
func failureMessage(err error) string {
	var rejected *arenadomain.SignupRejectedError
	if errors.As(err, &rejected) {
		return capitalize(rejected.Reason) + "."
	}
	return capitalize(err.Error()) + "."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// findType resolves an event type by name in a loaded arena summary.
func findType(info *arenaservice.ArenaInfo, name string) (arenaservice.EventTypeInfo, error) {
	for _, t := range info.EventTypes {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return arenaservice.EventTypeInfo{}, fmt.Errorf("%q: %w", name, arenaservice.ErrEventTypeNotFound)
}
