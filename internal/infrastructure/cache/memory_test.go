package cache

import (
	"testing"
	"time"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(ttl time.Duration, enabled bool) (*Memory, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)}
	return New(ttl, enabled, clock), clock
}

func TestKeyIsDeterministicAndCaseInsensitive(t *testing.T) {
	m, _ := newTestCache(time.Minute, true)

	a := m.Key("Tell me about the project", "", 5)
	b := m.Key("  tell me about the project  ", "", 5)
	if a != b {
		t.Fatalf("equivalent queries must share a key: %s != %s", a, b)
	}
	if m.Key("q", "", 5) == m.Key("q", "", 6) {
		t.Fatalf("k must participate in the key")
	}
	if m.Key("q", "doc-1", 5) == m.Key("q", "", 5) {
		t.Fatalf("scope must participate in the key")
	}
	if m.Key("q", "-", 5) != m.Key("q", "", 5) {
		// The sentinel collision is accepted: "-" is not a valid document id.
		t.Fatalf("empty scope uses the sentinel")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	m, _ := newTestCache(time.Minute, true)
	key := m.Key("question", "", 5)

	ranked := domain.RankedResult{{Passage: domain.Passage{SourceID: "p1", Text: "text"}, Score: 0.5}}
	m.PutRanked(key, ranked)

	got, ok := m.GetRanked(key)
	if !ok || len(got) != 1 || got[0].Passage.SourceID != "p1" {
		t.Fatalf("unexpected ranked payload: ok=%v got=%+v", ok, got)
	}

	answer := &domain.Answer{ID: "a1", Text: "answer"}
	m.PutAnswer(key, answer)
	gotAnswer, ok := m.GetAnswer(key)
	if !ok || gotAnswer.ID != "a1" {
		t.Fatalf("unexpected answer payload: ok=%v got=%+v", ok, gotAnswer)
	}
}

func TestExpiredEntriesAreEvictedOnRead(t *testing.T) {
	m, clock := newTestCache(time.Minute, true)
	key := m.Key("question", "", 5)

	m.PutRanked(key, domain.RankedResult{{Score: 0.5}})
	m.PutAnswer(key, &domain.Answer{ID: "a1"})

	clock.Advance(time.Minute + time.Second)

	if _, ok := m.GetRanked(key); ok {
		t.Fatalf("expected ranked entry to expire")
	}
	if _, ok := m.GetAnswer(key); ok {
		t.Fatalf("expected answer entry to expire")
	}

	stats := m.Stats()
	if stats.RankedEntries != 0 || stats.AnswerEntries != 0 {
		t.Fatalf("expired reads must evict, got %+v", stats)
	}
}

func TestEntryJustUnderTTLIsServed(t *testing.T) {
	m, clock := newTestCache(time.Minute, true)
	key := m.Key("question", "", 5)

	m.PutAnswer(key, &domain.Answer{ID: "a1"})
	clock.Advance(time.Minute)

	if _, ok := m.GetAnswer(key); !ok {
		t.Fatalf("entry at exactly TTL must still be served")
	}
}

func TestDisabledCacheIsTransparent(t *testing.T) {
	m, _ := newTestCache(time.Minute, false)
	key := m.Key("question", "", 5)

	m.PutRanked(key, domain.RankedResult{{Score: 0.5}})
	m.PutAnswer(key, &domain.Answer{ID: "a1"})

	if _, ok := m.GetRanked(key); ok {
		t.Fatalf("disabled cache must report absent")
	}
	if _, ok := m.GetAnswer(key); ok {
		t.Fatalf("disabled cache must report absent")
	}
	if stats := m.Stats(); stats.RankedEntries != 0 || stats.AnswerEntries != 0 {
		t.Fatalf("disabled cache must not store, got %+v", stats)
	}
}

func TestInvalidateAllClearsBothKinds(t *testing.T) {
	m, _ := newTestCache(time.Minute, true)
	key := m.Key("question", "", 5)

	m.PutRanked(key, domain.RankedResult{{Score: 0.5}})
	m.PutAnswer(key, &domain.Answer{ID: "a1"})
	m.InvalidateAll()

	if _, ok := m.GetRanked(key); ok {
		t.Fatalf("ranked entries must be gone after invalidation")
	}
	if _, ok := m.GetAnswer(key); ok {
		t.Fatalf("answer entries must be gone after invalidation")
	}
}

func TestNilAnswerIsNeverStored(t *testing.T) {
	m, _ := newTestCache(time.Minute, true)
	key := m.Key("question", "", 5)

	m.PutAnswer(key, nil)
	if stats := m.Stats(); stats.AnswerEntries != 0 {
		t.Fatalf("nil answers must be ignored, got %+v", stats)
	}
}

func TestLookupObserverSeesHitsAndMisses(t *testing.T) {
	m, _ := newTestCache(time.Minute, true)

	type lookup struct {
		kind string
		hit  bool
	}
	var seen []lookup
	m.SetLookupObserver(func(kind string, hit bool) {
		seen = append(seen, lookup{kind: kind, hit: hit})
	})

	key := m.Key("question", "", 5)
	m.GetRanked(key)
	m.PutAnswer(key, &domain.Answer{ID: "a1"})
	m.GetAnswer(key)

	want := []lookup{{"ranked", false}, {"answer", true}}
	if len(seen) != len(want) {
		t.Fatalf("expected %d lookups, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("lookup %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

func TestDisabledCacheReportsNoLookups(t *testing.T) {
	m, _ := newTestCache(time.Minute, false)
	m.SetLookupObserver(func(string, bool) {
		t.Fatal("disabled cache must not report lookups")
	})
	m.GetRanked(m.Key("question", "", 5))
}
