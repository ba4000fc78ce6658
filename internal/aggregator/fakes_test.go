package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/eldtechnologies/contextstack/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 11, 26, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeRepo returns messages newest-first unless order is overridden.
type fakeRepo struct {
	mu         sync.Mutex
	messages   []models.Message
	recentErr  error
	getErr     error
	reversed   bool // return RecentMessages oldest-first
	recentArgs []int
	getCalls   int
}

func (r *fakeRepo) RecentMessages(_ context.Context, channelID string, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recentArgs = append(r.recentArgs, limit)
	if r.recentErr != nil {
		return nil, r.recentErr
	}

	var out []models.Message
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].ChannelID == channelID {
			out = append(out, r.messages[i])
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	if r.reversed {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (r *fakeRepo) GetMessage(_ context.Context, channelID, messageID string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, m := range r.messages {
		if m.ChannelID == channelID && m.MessageID == messageID {
			msg := m
			return &msg, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) calls() (recent, get int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recentArgs), r.getCalls
}

// fakeNLP implements both capabilities. A non-nil gate makes a call block
// until the gate is closed or the call's context ends.
type fakeNLP struct {
	mu sync.Mutex

	actions    []models.Action
	actionsErr error
	actionGate chan struct{}

	docs    []models.DocMatch
	docsErr error
	docGate chan struct{}

	texts []string
	topKs []int
}

func (f *fakeNLP) ExtractActions(ctx context.Context, text string) ([]models.Action, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	gate, actions, err := f.actionGate, f.actions, f.actionsErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return actions, err
}

func (f *fakeNLP) SearchDocs(ctx context.Context, _ string, topK int) ([]models.DocMatch, error) {
	f.mu.Lock()
	f.topKs = append(f.topKs, topK)
	gate, docs, err := f.docGate, f.docs, f.docsErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return docs, err
}

// fakeCache is an expiring map on the fake clock that counts operations.
type fakeCache struct {
	mu      sync.Mutex
	clock   *fakeClock
	entries map[string]fakeEntry
	gets    int
	sets    int
	down    bool
}

type fakeEntry struct {
	value     []byte
	expiresAt time.Time
}

func newFakeCache(clock *fakeClock) *fakeCache {
	return &fakeCache{clock: clock, entries: make(map[string]fakeEntry)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.down {
		return nil, false
	}
	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.down {
		return
	}
	c.entries[key] = fakeEntry{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

func (c *fakeCache) counts() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

type recordingSink struct {
	mu     sync.Mutex
	events []DegradationEvent
}

func (s *recordingSink) CapabilityDegraded(ev DegradationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) capabilities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Capability
	}
	return out
}
