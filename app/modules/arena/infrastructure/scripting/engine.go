// Package arenascript runs arena script hooks written in Lua. A program is a
// chunk that returns a function; each evaluation calls that function in a
// fresh interpreter with the hook's arguments.
package arenascript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Shopify/go-lua"
)

const defaultBudget = 200_000

var (
	ErrNotAFunction    = errors.New("program must return a function")
	ErrBudgetExhausted = errors.New("program exceeded its instruction budget")
)

// Loader fetches the name and source of a stored program.
type Loader func(ctx context.Context, id arenadomain.ProgramID) (name, source string, err error)

type cached struct {
	name   string
	source string
}

// Engine validates and runs programs. Sources are cached per program id after
// their first successful load.
type Engine struct {
	logger *slog.Logger
	budget int

	mu    sync.RWMutex
	cache map[arenadomain.ProgramID]cached
}

type Option func(*Engine)

// WithBudget caps the number of VM instructions one evaluation may run.
func WithBudget(n int) Option {
	return func(e *Engine) { e.budget = n }
}

func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger: logger,
		budget: defaultBudget,
		cache:  make(map[arenadomain.ProgramID]cached),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver returns handles for stored programs that load their source
// through load on first use.
func (e *Engine) Resolver(load Loader) func(id arenadomain.ProgramID) arenadomain.Prog {
	return func(id arenadomain.ProgramID) arenadomain.Prog {
		return &program{id: id, engine: e, load: load}
	}
}

// Invalidate drops a cached source, typically after the program was edited.
func (e *Engine) Invalidate(id arenadomain.ProgramID) {
	e.mu.Lock()
	delete(e.cache, id)
	e.mu.Unlock()
}

func (e *Engine) source(ctx context.Context, id arenadomain.ProgramID, load Loader) (cached, error) {
	e.mu.RLock()
	c, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}
	if load == nil {
		return cached{}, fmt.Errorf("program #%d has no loader", id)
	}
	name, src, err := load(ctx, id)
	if err != nil {
		return cached{}, fmt.Errorf("failed to load program #%d: %w", id, err)
	}
	if err := e.Compile(src); err != nil {
		return cached{}, fmt.Errorf("program %q: %w", name, err)
	}
	c = cached{name: name, source: src}
	e.mu.Lock()
	e.cache[id] = c
	e.mu.Unlock()
	return c, nil
}

// Compile checks that source parses and evaluates to a function. Top-level
// code runs under the same instruction budget as an evaluation.
func (e *Engine) Compile(source string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("program panicked: %v", r)
		}
	}()
	l, m := e.newState(context.Background())
	if err := e.loadFunction(l, source); err != nil {
		return m.explain(err)
	}
	return nil
}

// Run evaluates source with args and returns its converted result.
func (e *Engine) Run(ctx context.Context, name, source string, args ...any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("program %q panicked: %v", name, r)
		}
	}()

	l, m := e.newState(ctx)
	if err := e.loadFunction(l, source); err != nil {
		return nil, fmt.Errorf("program %q: %w", name, m.explain(err))
	}
	for _, arg := range args {
		if err := push(l, arg); err != nil {
			return nil, fmt.Errorf("program %q: %w", name, err)
		}
	}

	if err := l.ProtectedCall(len(args), 1, 0); err != nil {
		err = m.explain(err)
		e.logger.WarnContext(ctx, "Program failed",
			attr.ExtractCorrelationID(ctx),
			attr.String("program", name),
			attr.Error(err),
		)
		return nil, fmt.Errorf("program %q: %w", name, err)
	}
	return pull(l, -1)
}

const hookEvery = 1000

// meter counts instructions for one interpreter, from loading the chunk to
// the end of the call.
type meter struct {
	steps     int
	exhausted bool
}

func (m *meter) explain(err error) error {
	if m.exhausted {
		return ErrBudgetExhausted
	}
	return err
}

// newState opens the safe libraries and installs the budget and
// cancellation hook before any program code runs.
func (e *Engine) newState(ctx context.Context) (*lua.State, *meter) {
	l := lua.NewState()
	lua.Require(l, "_G", lua.BaseOpen, true)
	lua.Require(l, "string", lua.StringOpen, true)
	lua.Require(l, "table", lua.TableOpen, true)
	lua.Require(l, "math", lua.MathOpen, true)
	l.SetTop(0)

	m := &meter{}
	lua.SetDebugHook(l, func(l *lua.State, _ lua.Debug) {
		m.steps += hookEvery
		if m.steps > e.budget {
			m.exhausted = true
			lua.Errorf(l, "instruction budget exhausted")
		}
		if ctx.Err() != nil {
			lua.Errorf(l, "cancelled: %s", ctx.Err().Error())
		}
	}, lua.MaskCount, hookEvery)
	return l, m
}

// loadFunction runs the chunk and leaves the function it returns on the stack.
func (e *Engine) loadFunction(l *lua.State, source string) error {
	if err := lua.LoadString(l, source); err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if !l.IsFunction(-1) {
		l.Pop(1)
		return ErrNotAFunction
	}
	return nil
}

// program is a lazily loaded stored program.
type program struct {
	id     arenadomain.ProgramID
	engine *Engine
	load   Loader

	mu   sync.Mutex
	name string
}

func (p *program) ID() arenadomain.ProgramID { return p.id }

func (p *program) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.name == "" {
		return fmt.Sprintf("program #%d", p.id)
	}
	return p.name
}

func (p *program) Execute(ctx context.Context, args ...any) (any, error) {
	c, err := p.engine.source(ctx, p.id, p.load)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.name = c.name
	p.mu.Unlock()
	return p.engine.Run(ctx, c.name, c.source, args...)
}
