package runner

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/store"
	"github.com/robalobadob/numguess/internal/target"
)

// Config wires a Manager.
type Config struct {
	Backend      store.Backend    // best-score backend shared by all players
	BestScoreKey string           // key base, scoped per player
	Generator    target.Generator // nil = crypto/rand
	IdleTimeout  time.Duration    // default 30m
	Round        Options
}

// Manager owns one Round per player, created on first use.
type Manager struct {
	mu     sync.Mutex
	rounds map[string]*Round

	cfg  Config
	now  func() time.Time
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewManager starts the idle cleanup loop.
func NewManager(cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.Generator == nil {
		cfg.Generator = target.New()
	}
	m := &Manager{
		rounds: make(map[string]*Round),
		cfg:    cfg,
		now:    time.Now,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns the player's Round, creating it if needed. The round is
// marked active under the manager lock so idle cleanup cannot stop it
// between Get and the caller's first intent.
func (m *Manager) Get(playerID string) *Round {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rounds[playerID]; ok {
		r.touch(m.now())
		return r
	}
	logger := log.With().Str("player", playerID).Logger()
	var best game.BestScoreStore
	if m.cfg.Backend != nil {
		bs := store.NewBestScore(m.cfg.Backend, store.BestScoreKey(m.cfg.BestScoreKey, playerID))
		logger = logger.With().Str("bestKey", bs.Key()).Logger()
		best = bs
	}
	opts := m.cfg.Round
	opts.Logger = &logger

	r := NewRound(game.NewSession(m.cfg.Generator, best), opts)
	r.touch(m.now())
	m.rounds[playerID] = r
	logger.Debug().Msg("round loop created")
	return r
}

// Lookup returns the player's Round without creating one.
func (m *Manager) Lookup(playerID string) (*Round, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[playerID]
	return r, ok
}

// Len reports how many round loops are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rounds)
}

// Remove stops and drops the player's Round.
func (m *Manager) Remove(playerID string) {
	m.mu.Lock()
	r, ok := m.rounds[playerID]
	delete(m.rounds, playerID)
	m.mu.Unlock()
	if ok {
		r.Stop()
	}
}

func (m *Manager) cleanupLoop() {
	defer close(m.done)

	every := m.cfg.IdleTimeout / 2
	if every > 5*time.Minute {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.cleanupIdle(); n > 0 {
				log.Info().Int("removed", n).Msg("idle rounds cleaned up")
			}
		case <-m.quit:
			return
		}
	}
}

// cleanupIdle stops every round with no intent within IdleTimeout.
func (m *Manager) cleanupIdle() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var idle []*Round
	for id, r := range m.rounds {
		if r.LastActive().Before(cutoff) {
			idle = append(idle, r)
			delete(m.rounds, id)
		}
	}
	m.mu.Unlock()

	for _, r := range idle {
		r.Stop()
	}
	return len(idle)
}

// Close stops the cleanup loop and every round.
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.quit)
		<-m.done

		m.mu.Lock()
		rounds := m.rounds
		m.rounds = make(map[string]*Round)
		m.mu.Unlock()

		for _, r := range rounds {
			r.Stop()
		}
	})
}
