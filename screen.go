package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Seednode/elva/bridge"
	"github.com/Seednode/elva/pasur"
)

var errScreenClosed = errors.New("screen closed")

type viewModel[V any] interface {
	Handle(pasur.Event) error
	View() V
}

type command[M any] struct {
	fn     func(M) error
	result chan error
}

// screen owns one view model and the bridge feeding it. Every mutation of
// the model happens on the goroutine running run; everyone else reads the
// copy published after each event.
type screen[M viewModel[V], V any] struct {
	name     string
	bridge   *bridge.Bridge
	model    M
	commands chan command[M]
	changed  chan struct{}
	done     chan struct{}

	mu         sync.RWMutex
	current    V
	lastActive time.Time
}

func newScreen[M viewModel[V], V any](name string, b *bridge.Bridge, model M) *screen[M, V] {
	return &screen[M, V]{
		name:       name,
		bridge:     b,
		model:      model,
		commands:   make(chan command[M]),
		changed:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		current:    model.View(),
		lastActive: time.Now(),
	}
}

// run drives the bridge and applies its events until ctx is cancelled.
func (s *screen[M, V]) run(ctx context.Context, cfg *Config) {
	defer close(s.done)

	go func() {
		_ = s.bridge.Run(ctx)
	}()

	events := s.bridge.Events()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}

			switch ev := e.(type) {
			case pasur.Opened:
				logf(cfg, "%s: Connected to %s", s.name, s.bridge.URL())
			case pasur.Closed:
				logf(cfg, "%s: Lost connection: %v", s.name, ev.Err)
			}

			if err := s.model.Handle(e); err != nil {
				logf(cfg, "%s: Dropped frame: %v", s.name, err)
			}

		case c := <-s.commands:
			c.result <- c.fn(s.model)
		}

		s.publish()
	}
}

func (s *screen[M, V]) publish() {
	v := s.model.View()

	s.mu.Lock()
	s.current = v
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// do runs fn on the event goroutine and waits for its result.
func (s *screen[M, V]) do(ctx context.Context, fn func(M) error) error {
	s.touch()

	c := command[M]{fn: fn, result: make(chan error, 1)}

	select {
	case s.commands <- c:
	case <-s.done:
		return errScreenClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-c.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// view returns the most recently published state.
func (s *screen[M, V]) view() V {
	s.touch()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// updates signals, coalesced, whenever a new view has been published.
func (s *screen[M, V]) updates() <-chan struct{} {
	return s.changed
}

func (s *screen[M, V]) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *screen[M, V]) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastActive
}

type gameScreen = screen[*pasur.GameViewModel, pasur.GameView]

type menuScreen = screen[*pasur.MenuViewModel, pasur.MenuView]

func newGameScreen(cfg *Config, match string) *gameScreen {
	b := bridge.New(cfg.gameSocketURL(match),
		bridge.WithHeader(cfg.header()),
		bridge.WithReconnectDelay(cfg.reconnectDelay),
		bridge.WithLogger(logger(cfg)),
	)

	model := pasur.NewGameViewModel(cfg.player, b)
	model.Mount()

	return newScreen[*pasur.GameViewModel, pasur.GameView]("GAME "+match, b, model)
}

func newMenuScreen(cfg *Config, nav pasur.Navigator) *menuScreen {
	b := bridge.New(cfg.menuSocketURL(),
		bridge.WithHeader(cfg.header()),
		bridge.WithReconnectDelay(cfg.reconnectDelay),
		bridge.WithLogger(logger(cfg)),
	)

	return newScreen[*pasur.MenuViewModel, pasur.MenuView]("MENU", b, pasur.NewMenuViewModel(b, nav))
}

type managedScreen struct {
	screen *gameScreen
	cancel context.CancelFunc
}

// screenManager holds one game screen per match, so every match the viewer
// is asked about gets its own socket.
type screenManager struct {
	cfg         *Config
	ctx         context.Context
	mu          sync.Mutex
	screens     map[string]managedScreen
	idleTimeout time.Duration
}

func newScreenManager(ctx context.Context, cfg *Config) *screenManager {
	sm := &screenManager{
		cfg:         cfg,
		ctx:         ctx,
		screens:     make(map[string]managedScreen),
		idleTimeout: cfg.sessionTimeout,
	}
	if sm.idleTimeout > 0 {
		go sm.reaperLoop()
	}
	return sm
}

func (sm *screenManager) get(match string) *gameScreen {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if ms, ok := sm.screens[match]; ok {
		return ms.screen
	}

	ctx, cancel := context.WithCancel(sm.ctx)
	s := newGameScreen(sm.cfg, match)
	sm.screens[match] = managedScreen{screen: s, cancel: cancel}
	go s.run(ctx, sm.cfg)

	logf(sm.cfg, "GAME: Opened screen for match %s", match)

	return s
}

// lookup returns the screen for match only if it is already open.
func (sm *screenManager) lookup(match string) (*gameScreen, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ms, ok := sm.screens[match]
	return ms.screen, ok
}

func (sm *screenManager) count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return len(sm.screens)
}

// reap closes screens that nobody looked at since cutoff.
func (sm *screenManager) reap(cutoff time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for match, ms := range sm.screens {
		if ms.screen.idleSince().Before(cutoff) {
			delete(sm.screens, match)
			ms.cancel()
			logf(sm.cfg, "GAME: Closed idle screen for match %s", match)
		}
	}
}

func (sm *screenManager) reaperLoop() {
	ticker := time.NewTicker(sm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			return
		case <-ticker.C:
			sm.reap(time.Now().Add(-sm.idleTimeout))
		}
	}
}
