// Package session keeps one ledger, profile and language per browser.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/cache"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
)

const (
	DefaultTTL         = 2 * time.Hour
	DefaultMaxSessions = 1000
	sweepInterval      = time.Minute
)

// Session is the state of one visitor. Fields may only be touched inside Do.
type Session struct {
	ID string

	mu       sync.Mutex
	Language core.Language
	Profile  core.Profile
	Store    ledger.Store
}

// Do runs fn with the session locked. Requests of one visitor are
// serialised; different visitors never block each other.
func (s *Session) Do(fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// StoreFactory creates the ledger store of a new session.
type StoreFactory interface {
	NewStore(ctx context.Context) (ledger.Store, error)
}

// Options tunes a Manager. Zero values take defaults.
type Options struct {
	TTL             time.Duration
	MaxSessions     int
	DefaultLanguage core.Language
	Gauge           prometheus.Gauge
	Logger          *log.Logger
}

// Manager hands out sessions by ID and closes their ledgers when they expire
// or are pushed out by newer ones.
type Manager struct {
	factory     StoreFactory
	sessions    *cache.LRUCache[*Session]
	janitor     *cache.Manager
	defaultLang core.Language
	gauge       prometheus.Gauge
	logger      *log.Logger
}

func NewManager(factory StoreFactory, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions < 1 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if !opts.DefaultLanguage.IsValid() {
		opts.DefaultLanguage = core.LanguageEnglish
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	m := &Manager{
		factory:     factory,
		defaultLang: opts.DefaultLanguage,
		gauge:       opts.Gauge,
		logger:      opts.Logger.WithComponent(log.ComponentSession),
	}
	m.sessions = cache.NewLRUCache[*Session](opts.MaxSessions, opts.TTL).OnEvict(m.evicted)
	m.janitor = cache.NewManager(func(removed int) {
		m.logger.Debug("Expired sessions swept", log.FieldRecords, removed)
	})
	m.janitor.Register(m.sessions)
	return m
}

// Start begins the periodic sweep of expired sessions.
func (m *Manager) Start() {
	m.janitor.StartCleanup(sweepInterval)
}

func (m *Manager) evicted(id string, s *Session) {
	_ = s.Do(func(s *Session) error {
		if s.Store != nil {
			if err := s.Store.Close(); err != nil {
				m.logger.Warn("Failed to close session ledger", log.FieldSessionID, id, log.FieldError, err.Error())
			}
		}
		return nil
	})
	m.logger.Info("Session ended", log.FieldSessionID, id, log.FieldOperation, log.OpEvict)
	m.report()
}

func (m *Manager) report() {
	if m.gauge != nil {
		m.gauge.Set(float64(m.sessions.Size()))
	}
}

// Get returns a live session. Reading refreshes its TTL.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return m.sessions.Get(id)
}

// Create starts a new session with an empty ledger.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	store, err := m.factory.NewStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session ledger: %w", err)
	}
	s := &Session{
		ID:       uuid.NewString(),
		Language: m.defaultLang,
		Profile:  core.DefaultProfile(),
		Store:    store,
	}
	m.sessions.Set(s.ID, s)
	m.report()
	m.logger.InfoContext(ctx, "Session started", log.FieldSessionID, s.ID)
	return s, nil
}

// GetOrCreate returns the session for id, or a new one when id is unknown or
// expired. created reports which happened.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (s *Session, created bool, err error) {
	if s, ok := m.Get(id); ok {
		return s, false, nil
	}
	s, err = m.Create(ctx)
	return s, err == nil, err
}

// Delete ends a session immediately.
func (m *Manager) Delete(id string) {
	m.sessions.Delete(id)
}

// DefaultLanguage is the language of new sessions.
func (m *Manager) DefaultLanguage() core.Language {
	return m.defaultLang
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// Close stops the sweeper and ends every session.
func (m *Manager) Close() {
	m.janitor.Stop()
	m.sessions.Purge()
}
