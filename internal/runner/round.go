// internal/runner/round.go
//
// Per-player event loop around a game.Session.
// Responsibilities:
//   - Serialize user intents (commands) and clock ticks onto one goroutine.
//   - Run a ticker only while a timed round is in progress, restarting it
//     for every new round.
//   - Publish a snapshot after every state change to subscribers.
//
// Commands already queued when a tick fires are applied before the tick, so
// a guess and a tick arriving together resolve in the guess's favour.

package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/difficulty"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/metrics"
)

// ErrStopped is returned by calls made after Stop.
var ErrStopped = errors.New("round loop stopped")

const (
	commandQueue    = 16
	subscriberQueue = 8
)

// Ticker is the subset of time.Ticker the loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTimeTicker is the production TickerFunc.
func NewTimeTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

// Options tune a Round.
type Options struct {
	TickInterval      time.Duration  // default 1s
	NewTicker         TickerFunc     // default NewTimeTicker
	DefaultDifficulty difficulty.Key // used by NewGame before any round; default medium
	Metrics           *metrics.Metrics
	Logger            *zerolog.Logger // default: global logger
}

func (o *Options) defaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.NewTicker == nil {
		o.NewTicker = NewTimeTicker
	}
	if o.DefaultDifficulty == "" {
		o.DefaultDifficulty = difficulty.Medium
	}
	if o.Logger == nil {
		o.Logger = &log.Logger
	}
}

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdGuess
	cmdNewGame
	cmdMenu
	cmdResetBest
	cmdBest
)

func (k cmdKind) String() string {
	switch k {
	case cmdStart:
		return "start"
	case cmdGuess:
		return "guess"
	case cmdNewGame:
		return "new_game"
	case cmdMenu:
		return "menu"
	case cmdResetBest:
		return "reset_best"
	case cmdBest:
		return "best"
	}
	return "unknown"
}

type command struct {
	kind  cmdKind
	arg   string
	reply chan result
}

type result struct {
	snap     game.Snapshot
	best     int
	haveBest bool
	err      error
}

// Round owns one Session and the goroutine that drives it.
type Round struct {
	session *game.Session
	opts    Options
	log     zerolog.Logger

	cmds     chan command
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	// loop-owned ticker state
	ticker      Ticker
	tickC       <-chan time.Time
	tickedRound string

	mu         sync.Mutex
	snap       game.Snapshot
	subs       map[chan game.Snapshot]struct{}
	lastActive time.Time
}

// NewRound starts the event loop for s.
func NewRound(s *game.Session, opts Options) *Round {
	r := newRound(s, opts)
	r.opts.Metrics.RoundLoopStarted()
	go r.run()
	return r
}

// newRound builds a Round without starting its loop.
func newRound(s *game.Session, opts Options) *Round {
	opts.defaults()
	return &Round{
		session:    s,
		opts:       opts,
		log:        *opts.Logger,
		cmds:       make(chan command, commandQueue),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		snap:       s.Snapshot(),
		subs:       make(map[chan game.Snapshot]struct{}),
		lastActive: time.Now(),
	}
}

// ------------------------------- public API --------------------------------

// Start begins a round at the given difficulty.
func (r *Round) Start(ctx context.Context, key difficulty.Key) (game.Snapshot, error) {
	res, err := r.do(ctx, cmdStart, string(key))
	if err != nil {
		return game.Snapshot{}, err
	}
	return res.snap, res.err
}

// Guess submits raw player input.
func (r *Round) Guess(ctx context.Context, raw string) (game.Snapshot, error) {
	res, err := r.do(ctx, cmdGuess, raw)
	if err != nil {
		return game.Snapshot{}, err
	}
	return res.snap, res.err
}

// NewGame restarts at the last played difficulty.
func (r *Round) NewGame(ctx context.Context) (game.Snapshot, error) {
	res, err := r.do(ctx, cmdNewGame, "")
	if err != nil {
		return game.Snapshot{}, err
	}
	return res.snap, res.err
}

// Menu abandons the current round.
func (r *Round) Menu(ctx context.Context) (game.Snapshot, error) {
	res, err := r.do(ctx, cmdMenu, "")
	if err != nil {
		return game.Snapshot{}, err
	}
	return res.snap, res.err
}

// ResetBest clears the persisted best score.
func (r *Round) ResetBest(ctx context.Context) error {
	res, err := r.do(ctx, cmdResetBest, "")
	if err != nil {
		return err
	}
	return res.err
}

// Best reads the persisted best score.
func (r *Round) Best(ctx context.Context) (int, bool, error) {
	res, err := r.do(ctx, cmdBest, "")
	if err != nil {
		return 0, false, err
	}
	return res.best, res.haveBest, res.err
}

// Snapshot returns the most recently published state.
func (r *Round) Snapshot() game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// LastActive is the time of the last intent.
func (r *Round) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// touch records activity at t.
func (r *Round) touch(t time.Time) {
	r.mu.Lock()
	if t.After(r.lastActive) {
		r.lastActive = t
	}
	r.mu.Unlock()
}

// Subscribe returns a channel receiving every published snapshot and a
// cancel func. Slow subscribers miss snapshots rather than block the loop.
// The channel is closed on cancel or Stop.
func (r *Round) Subscribe() (<-chan game.Snapshot, func()) {
	ch := make(chan game.Snapshot, subscriberQueue)
	r.mu.Lock()
	select {
	case <-r.quit:
		close(ch)
	default:
		r.subs[ch] = struct{}{}
	}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Stop ends the loop and closes subscriber channels. Safe to call twice.
func (r *Round) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		<-r.stopped
		r.opts.Metrics.RoundLoopStopped()

		r.mu.Lock()
		for ch := range r.subs {
			close(ch)
		}
		r.subs = map[chan game.Snapshot]struct{}{}
		r.mu.Unlock()
	})
}

func (r *Round) do(ctx context.Context, kind cmdKind, arg string) (result, error) {
	c := command{kind: kind, arg: arg, reply: make(chan result, 1)}

	r.touch(time.Now())

	select {
	case r.cmds <- c:
	case <-r.quit:
		return result{}, ErrStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res := <-c.reply:
		return res, nil
	case <-r.stopped:
		return result{}, ErrStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// --------------------------------- loop ------------------------------------

func (r *Round) run() {
	defer close(r.stopped)
	defer r.stopTicker()

	for {
		select {
		case <-r.quit:
			return
		case c := <-r.cmds:
			r.handle(c)
		case <-r.tickC:
			r.handleTick()
		}
	}
}

// handleTick drains queued commands, then applies the tick if the ticker
// that fired still belongs to the current round.
func (r *Round) handleTick() {
	owner := r.tickedRound
drain:
	for {
		select {
		case c := <-r.cmds:
			r.handle(c)
		default:
			break drain
		}
	}
	if r.tickC == nil || r.tickedRound != owner {
		return
	}
	if !r.session.Tick() {
		return
	}
	snap := r.session.Snapshot()
	if snap.Phase.Terminal() {
		r.opts.Metrics.RoundFinished(string(snap.Difficulty), string(snap.Phase))
		r.log.Info().Str("round", snap.RoundID).Str("difficulty", string(snap.Difficulty)).
			Int("attempts", snap.AttemptsUsed).Msg("round lost on time")
	}
	r.publish(snap)
	r.syncTicker(snap)
}

func (r *Round) handle(c command) {
	ctx := context.Background()
	var res result
	r.log.Debug().Stringer("intent", c.kind).Msg("apply")

	switch c.kind {
	case cmdStart:
		res.err = r.start(difficulty.Key(c.arg))
	case cmdNewGame:
		key, ok := r.session.LastDifficulty()
		if !ok {
			key = r.opts.DefaultDifficulty
		}
		res.err = r.start(key)
	case cmdGuess:
		res.err = r.guess(ctx, c.arg)
	case cmdMenu:
		r.session.ResetToMenu()
	case cmdResetBest:
		if err := r.session.ResetBestScore(ctx); err != nil {
			r.log.Error().Err(err).Msg("reset best score")
			res.err = err
		}
	case cmdBest:
		res.best, res.haveBest, res.err = r.session.BestScore(ctx)
	}

	snap := r.session.Snapshot()
	if c.kind != cmdBest && c.kind != cmdResetBest {
		r.publish(snap)
		r.syncTicker(snap)
	}
	res.snap = snap
	c.reply <- res
}

func (r *Round) start(key difficulty.Key) error {
	if err := r.session.StartRound(key); err != nil {
		r.log.Warn().Err(err).Str("difficulty", string(key)).Msg("start round rejected")
		return err
	}
	snap := r.session.Snapshot()
	r.opts.Metrics.RoundStarted(string(snap.Difficulty))
	r.log.Info().Str("round", snap.RoundID).Str("difficulty", string(snap.Difficulty)).Msg("round started")
	return nil
}

// guess applies one guess. Illegal-state submissions are logged and
// reported to the caller; store failures are logged and do not fail the
// call because the win already stands.
func (r *Round) guess(ctx context.Context, raw string) error {
	err := r.session.SubmitGuess(ctx, raw)
	if errors.Is(err, game.ErrIllegalState) {
		r.log.Warn().Err(err).Msg("guess ignored")
		return err
	}
	if err != nil {
		r.log.Error().Err(err).Msg("persist best score")
	}

	snap := r.session.Snapshot()
	switch {
	case snap.Phase == game.PhaseWon:
		r.opts.Metrics.Guess(metrics.OutcomeCorrect)
		if snap.NewBest {
			r.opts.Metrics.BestImproved()
		}
		ev := r.log.Info().Str("round", snap.RoundID).Int("attempts", snap.AttemptsUsed).Bool("newBest", snap.NewBest)
		if snap.Score != nil {
			ev = ev.Int("score", snap.Score.Total)
		}
		ev.Dur("elapsed", r.session.Elapsed()).Msg("round won")
	case snap.Feedback == game.FeedbackInvalidInput:
		r.opts.Metrics.Guess(metrics.OutcomeInvalid)
	default:
		r.opts.Metrics.Guess(string(snap.Feedback))
		if snap.Phase == game.PhaseLostAttempts {
			r.log.Info().Str("round", snap.RoundID).Msg("round lost on attempts")
		}
	}
	if snap.Phase.Terminal() {
		r.opts.Metrics.RoundFinished(string(snap.Difficulty), string(snap.Phase))
	}
	return nil
}

// syncTicker keeps exactly one ticker alive while a timed round is in
// progress, bound to that round's id.
func (r *Round) syncTicker(snap game.Snapshot) {
	want := snap.Phase == game.PhaseInProgress && snap.TimeRemaining != nil
	switch {
	case want && r.tickedRound != snap.RoundID:
		r.stopTicker()
		r.ticker = r.opts.NewTicker(r.opts.TickInterval)
		r.tickC = r.ticker.C()
		r.tickedRound = snap.RoundID
	case !want && r.ticker != nil:
		r.stopTicker()
	}
}

func (r *Round) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
	r.ticker = nil
	r.tickC = nil
	r.tickedRound = ""
}

func (r *Round) publish(snap game.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap
	for ch := range r.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
