// Package eventdb journals marketplace events to SQLite or PostgreSQL so the
// history of an offer survives restarts.
package eventdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// Entry is one journaled event.
type Entry struct {
	Seq        int64           `json:"seq"`
	EventID    string          `json:"event_id"`
	Kind       string          `json:"kind"`
	OfferID    *uint64         `json:"offer_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Journal is a market.EventSink writing to the offer_events table.
type Journal struct {
	mu     sync.RWMutex
	db     *sql.DB
	config *Config
	now    func() time.Time
	logger *zap.Logger
}

var _ market.EventSink = (*Journal)(nil)

type Option func(*Journal)

func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// Open connects, pings and creates the schema if missing.
func Open(ctx context.Context, config *Config, opts ...Option) (*Journal, error) {
	if err := config.Validate(); err != nil {
		return nil, opError("open", err)
	}
	connStr, err := config.BuildConnectionString()
	if err != nil {
		return nil, opError("open", err)
	}

	j := &Journal{config: config, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(j)
	}

	db, err := sql.Open(config.Driver, connStr)
	if err != nil {
		return nil, opError("open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.DefaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, opError("ping", err)
	}

	j.db = db
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, opError("schema", err)
	}

	j.logger.Info("event journal opened", zap.String("driver", config.Driver))
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if j.config.Driver == DriverPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS offer_events (
			` + seq + `,
			event_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			offer_id BIGINT,
			payload TEXT NOT NULL,
			recorded_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_offer_events_offer ON offer_events (offer_id, seq)`,
	}
	for _, q := range queries {
		if _, err := j.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Emit appends ev to the journal.
func (j *Journal) Emit(ctx context.Context, ev market.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return opError("emit", fmt.Errorf("encode %s: %w", ev.Kind(), err))
	}

	var offerID sql.NullInt64
	if id, ok := ev.OfferRef(); ok {
		if id > math.MaxInt64 {
			return opError("emit", fmt.Errorf("%w: %d", ErrOfferIDRange, id))
		}
		offerID = sql.NullInt64{Int64: int64(id), Valid: true}
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return opError("emit", ErrDatabaseClosed)
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.DefaultTimeout)
	defer cancel()

	_, err = j.db.ExecContext(ctx, j.rebind(
		`INSERT INTO offer_events (event_id, kind, offer_id, payload, recorded_at) VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), string(ev.Kind()), offerID, string(payload), j.now().UnixMilli())
	return opError("emit", err)
}

// History returns the events of one offer in emission order.
func (j *Journal) History(ctx context.Context, offerID uint64) ([]Entry, error) {
	if offerID > math.MaxInt64 {
		return nil, nil
	}
	return j.query(ctx, "history",
		`SELECT seq, event_id, kind, offer_id, payload, recorded_at FROM offer_events WHERE offer_id = ? ORDER BY seq`,
		int64(offerID))
}

// Recent returns up to limit most recent events, oldest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	entries, err := j.query(ctx, "recent",
		`SELECT seq, event_id, kind, offer_id, payload, recorded_at FROM offer_events ORDER BY seq DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}

func (j *Journal) query(ctx context.Context, op, q string, args ...any) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, opError(op, ErrDatabaseClosed)
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.DefaultTimeout)
	defer cancel()

	rows, err := j.db.QueryContext(ctx, j.rebind(q), args...)
	if err != nil {
		return nil, opError(op, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			offerID  sql.NullInt64
			payload  string
			recorded int64
		)
		if err := rows.Scan(&e.Seq, &e.EventID, &e.Kind, &offerID, &payload, &recorded); err != nil {
			return nil, opError(op, err)
		}
		if offerID.Valid {
			id := uint64(offerID.Int64)
			e.OfferID = &id
		}
		e.Payload = json.RawMessage(payload)
		e.RecordedAt = time.UnixMilli(recorded).UTC()
		out = append(out, e)
	}
	return out, opError(op, rows.Err())
}

// Close closes the connection pool. Further calls fail with ErrDatabaseClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return opError("close", err)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (j *Journal) rebind(q string) string {
	if j.config.Driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
