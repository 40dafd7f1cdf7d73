package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/domain"
)

// NotifyChannel is the LISTEN/NOTIFY channel carrying changed user ids.
const NotifyChannel = "aura_ledger_changes"

// ─── PostgreSQL Store ───────────────────────────────────────────────────────

// Postgres implements domain.RemoteRecords and domain.RecordLister on a
// single JSONB-per-user table. Every write issues pg_notify in the same
// transaction; one listener connection per store fans notifications out to
// subscribers.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger

	mu        sync.Mutex
	subs      map[string]map[*pgSub]struct{}
	listening bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, log *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Postgres{
		pool: pool,
		log:  log.Named("remote.postgres"),
		subs: make(map[string]map[*pgSub]struct{}),
	}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS ledger_records (
	user_id    TEXT PRIMARY KEY,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
	version    BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close stops the listener and releases the pool.
func (p *Postgres) Close() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.listening = false
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	p.pool.Close()
}

// Update merges fields into the user's record with the JSONB || operator.
func (p *Postgres) Update(ctx context.Context, userID string, fields map[string]any) (int64, error) {
	enc, err := encodeFields(fields)
	if err != nil {
		return 0, err
	}
	doc, err := json.Marshal(enc)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var version int64
	err = tx.QueryRow(ctx, `
INSERT INTO ledger_records (user_id, fields, version, updated_at)
VALUES ($1, $2::jsonb, 1, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	fields     = ledger_records.fields || EXCLUDED.fields,
	version    = ledger_records.version + 1,
	updated_at = NOW()
RETURNING version`, userID, string(doc)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("upsert record %s: %w", userID, err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, userID); err != nil {
		return 0, fmt.Errorf("notify %s: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

// Get returns the user's record or domain.ErrRecordNotFound.
func (p *Postgres) Get(ctx context.Context, userID string) (domain.RemoteRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT user_id, fields, version, updated_at FROM ledger_records WHERE user_id = $1`, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RemoteRecord{}, domain.ErrRecordNotFound
	}
	return rec, err
}

// List returns every record sorted by user id.
func (p *Postgres) List(ctx context.Context) ([]domain.RemoteRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT user_id, fields, version, updated_at FROM ledger_records ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []domain.RemoteRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the user's record.
func (p *Postgres) Delete(ctx context.Context, userID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM ledger_records WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete record %s: %w", userID, err)
	}
	return nil
}

func scanRecord(row pgx.Row) (domain.RemoteRecord, error) {
	var (
		rec domain.RemoteRecord
		raw []byte
		at  time.Time
	)
	if err := row.Scan(&rec.UserID, &raw, &rec.Version, &at); err != nil {
		return domain.RemoteRecord{}, err
	}
	if err := json.Unmarshal(raw, &rec.Fields); err != nil {
		return domain.RemoteRecord{}, fmt.Errorf("decode record %s: %w", rec.UserID, err)
	}
	rec.Fields = cloneFields(rec.Fields)
	rec.UpdatedAt = at
	return rec, nil
}

// ─── LISTEN/NOTIFY Fan-out ──────────────────────────────────────────────────

type pgSub struct {
	userID   string
	onChange func(domain.RemoteRecord)
	store    *Postgres
	once     sync.Once
	closed   chan struct{}
}

func (s *pgSub) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs[s.userID], s)
		if len(s.store.subs[s.userID]) == 0 {
			delete(s.store.subs, s.userID)
		}
		s.store.mu.Unlock()
		close(s.closed)
	})
	return nil
}

// Subscribe registers onChange for the user's record. The listener
// connection is started on first use.
func (p *Postgres) Subscribe(ctx context.Context, userID string, onChange func(domain.RemoteRecord)) (domain.Subscription, error) {
	s := &pgSub{userID: userID, onChange: onChange, store: p, closed: make(chan struct{})}

	p.mu.Lock()
	if p.subs[userID] == nil {
		p.subs[userID] = make(map[*pgSub]struct{})
	}
	p.subs[userID][s] = struct{}{}
	start := !p.listening
	if start {
		lctx, cancel := context.WithCancel(context.Background())
		p.listening = true
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.listen(lctx, p.done)
	}
	p.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closed:
		}
	}()
	return s, nil
}

// listen holds a dedicated connection on LISTEN and reconnects with backoff
// until ctx ends.
func (p *Postgres) listen(ctx context.Context, done chan struct{}) {
	defer close(done)
	backoff := time.Second
	for {
		err := p.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("listener disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

func (p *Postgres) listenOnce(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener: %w", err)
	}
	defer conn.Release()

	channel := pgx.Identifier{NotifyChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() {
		// The connection goes back to the pool; it must not keep listening.
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+channel)
	}()
	p.log.Debug("listening", zap.String("channel", NotifyChannel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		p.dispatch(ctx, n.Payload)
	}
}

func (p *Postgres) dispatch(ctx context.Context, userID string) {
	p.mu.Lock()
	targets := make([]*pgSub, 0, len(p.subs[userID]))
	for s := range p.subs[userID] {
		targets = append(targets, s)
	}
	p.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	rec, err := p.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			p.log.Warn("fetch changed record", zap.String("user", userID), zap.Error(err))
		}
		return
	}
	for _, s := range targets {
		s.onChange(copyRecord(rec))
	}
}
