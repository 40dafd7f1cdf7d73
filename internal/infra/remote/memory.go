package remote

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/aura-network/aura/internal/domain"
)

// ─── In-Memory Store ────────────────────────────────────────────────────────

// Memory implements domain.RemoteRecords and domain.RecordLister in process.
// Changes are delivered to subscribers asynchronously, newest record wins
// when a subscriber falls behind.
type Memory struct {
	mu      sync.Mutex
	records map[string]domain.RemoteRecord
	subs    map[string]map[*memorySub]struct{}
	now     func() time.Time

	// FailUpdates makes Update return this error when set (tests).
	FailUpdates error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]domain.RemoteRecord),
		subs:    make(map[string]map[*memorySub]struct{}),
		now:     time.Now,
	}
}

// Update merges fields into the user's record.
func (m *Memory) Update(_ context.Context, userID string, fields map[string]any) (int64, error) {
	enc, err := encodeFields(fields)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	if m.FailUpdates != nil {
		err := m.FailUpdates
		m.mu.Unlock()
		return 0, err
	}
	rec, ok := m.records[userID]
	if !ok {
		rec = domain.RemoteRecord{UserID: userID, Fields: make(map[string]json.RawMessage)}
	}
	for k, v := range enc {
		rec.Fields[k] = v
	}
	rec.Version++
	rec.UpdatedAt = m.now()
	m.records[userID] = rec

	snapshot := copyRecord(rec)
	for s := range m.subs[userID] {
		s.offer(snapshot)
	}
	m.mu.Unlock()
	return snapshot.Version, nil
}

// Get returns a copy of the user's record.
func (m *Memory) Get(_ context.Context, userID string) (domain.RemoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return domain.RemoteRecord{}, domain.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

// List returns every record sorted by user id.
func (m *Memory) List(_ context.Context) ([]domain.RemoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RemoteRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Delete removes the user's record.
func (m *Memory) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.records, userID)
	m.mu.Unlock()
	return nil
}

// Subscribe starts delivering the user's record on every change.
func (m *Memory) Subscribe(ctx context.Context, userID string, onChange func(domain.RemoteRecord)) (domain.Subscription, error) {
	s := &memorySub{
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[*memorySub]struct{})
	}
	m.subs[userID][s] = struct{}{}
	m.mu.Unlock()

	s.release = func() {
		m.mu.Lock()
		delete(m.subs[userID], s)
		if len(m.subs[userID]) == 0 {
			delete(m.subs, userID)
		}
		m.mu.Unlock()
	}

	go s.run(ctx, onChange)
	return s, nil
}

func copyRecord(rec domain.RemoteRecord) domain.RemoteRecord {
	rec.Fields = cloneFields(rec.Fields)
	return rec
}

// ─── Subscription ───────────────────────────────────────────────────────────

type memorySub struct {
	mu      sync.Mutex
	pending *domain.RemoteRecord
	signal  chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	release func()
}

// offer replaces any undelivered record with rec.
func (s *memorySub) offer(rec domain.RemoteRecord) {
	s.mu.Lock()
	s.pending = &rec
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memorySub) run(ctx context.Context, onChange func(domain.RemoteRecord)) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.release()
			return
		case <-s.stop:
			return
		case <-s.signal:
			s.mu.Lock()
			rec := s.pending
			s.pending = nil
			s.mu.Unlock()
			if rec != nil {
				onChange(*rec)
			}
		}
	}
}

// Close stops delivery and waits for an in-flight callback to return.
func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.release()
		close(s.stop)
	})
	<-s.done
	return nil
}
