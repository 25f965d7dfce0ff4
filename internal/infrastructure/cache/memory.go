package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// noScopeSentinel keys corpus-wide queries so that an empty scope and a
// literal scope id can never collide.
const noScopeSentinel = "-"

// Clock abstracts time so TTL behavior is testable with a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type rankedEntry struct {
	payload   domain.RankedResult
	createdAt time.Time
}

type answerEntry struct {
	payload   *domain.Answer
	createdAt time.Time
}

// Memory is the in-process answer cache: content-addressed keys, TTL-based
// expiry with eviction on read, and a global enable switch honored inside
// the cache so callers never branch on it. State is volatile by design; a
// restart silently resets it.
type Memory struct {
	ttl     time.Duration
	enabled bool
	clock   Clock

	mu      sync.RWMutex
	ranked  map[string]rankedEntry
	answers map[string]answerEntry

	onLookup func(kind string, hit bool)
}

func New(ttl time.Duration, enabled bool, clock Clock) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Memory{
		ttl:     ttl,
		enabled: enabled,
		clock:   clock,
		ranked:  make(map[string]rankedEntry),
		answers: make(map[string]answerEntry),
	}
}

// SetLookupObserver registers a callback invoked once per enabled-cache read
// with the payload kind ("ranked" or "answer") and whether it hit. Set it
// before serving traffic; registration is not synchronized against reads.
func (m *Memory) SetLookupObserver(fn func(kind string, hit bool)) {
	m.onLookup = fn
}

func (m *Memory) observe(kind string, hit bool) {
	if m.onLookup != nil {
		m.onLookup(kind, hit)
	}
}

// Key builds the deterministic content hash for one logical request:
// lower-cased trimmed query text, scope id (or the no-scope sentinel) and
// the requested result count.
func (m *Memory) Key(queryText, scopeID string, k int) string {
	if scopeID == "" {
		scopeID = noScopeSentinel
	}
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(queryText))))
	h.Write([]byte{0})
	h.Write([]byte(scopeID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k)))
	return hex.EncodeToString(h.Sum(nil))
}

func (m *Memory) GetRanked(key string) (domain.RankedResult, bool) {
	if !m.enabled {
		return nil, false
	}

	m.mu.RLock()
	entry, ok := m.ranked[key]
	m.mu.RUnlock()
	if !ok {
		m.observe("ranked", false)
		return nil, false
	}
	if m.expired(entry.createdAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent put may have
		// refreshed the entry. A lost eviction race only costs one
		// extra stale read.
		if current, ok := m.ranked[key]; ok && m.expired(current.createdAt) {
			delete(m.ranked, key)
		}
		m.mu.Unlock()
		m.observe("ranked", false)
		return nil, false
	}
	m.observe("ranked", true)
	return entry.payload, true
}

func (m *Memory) PutRanked(key string, result domain.RankedResult) {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	m.ranked[key] = rankedEntry{payload: result, createdAt: m.clock.Now()}
	m.mu.Unlock()
}

func (m *Memory) GetAnswer(key string) (*domain.Answer, bool) {
	if !m.enabled {
		return nil, false
	}

	m.mu.RLock()
	entry, ok := m.answers[key]
	m.mu.RUnlock()
	if !ok {
		m.observe("answer", false)
		return nil, false
	}
	if m.expired(entry.createdAt) {
		m.mu.Lock()
		if current, ok := m.answers[key]; ok && m.expired(current.createdAt) {
			delete(m.answers, key)
		}
		m.mu.Unlock()
		m.observe("answer", false)
		return nil, false
	}
	m.observe("answer", true)
	return entry.payload, true
}

func (m *Memory) PutAnswer(key string, answer *domain.Answer) {
	if !m.enabled || answer == nil {
		return
	}
	m.mu.Lock()
	m.answers[key] = answerEntry{payload: answer, createdAt: m.clock.Now()}
	m.mu.Unlock()
}

// InvalidateAll clears everything. Called on corpus mutation events.
func (m *Memory) InvalidateAll() {
	m.mu.Lock()
	m.ranked = make(map[string]rankedEntry)
	m.answers = make(map[string]answerEntry)
	m.mu.Unlock()
}

type Stats struct {
	Enabled       bool          `json:"enabled"`
	TTL           time.Duration `json:"ttl"`
	RankedEntries int           `json:"ranked_entries"`
	AnswerEntries int           `json:"answer_entries"`
}

func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Enabled:       m.enabled,
		TTL:           m.ttl,
		RankedEntries: len(m.ranked),
		AnswerEntries: len(m.answers),
	}
}

func (m *Memory) expired(createdAt time.Time) bool {
	return m.clock.Now().Sub(createdAt) > m.ttl
}
