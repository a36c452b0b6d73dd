// Package offerdb persists offers in a key/value database.
//
// Layout:
//
//	o/<big-endian uint64 id>  msgpack offer record, passed through the configured compressor
//	m/next                    big-endian uint64, the next unused id
//	s/<20-byte account>       big-endian uint64, last accepted signed tx sequence
//
// Creating an offer writes its record and the advanced counter in one batch.
package offerdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/storage/compression"
	"github.com/LeJamon/goMarketd/internal/storage/database"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of decoded offers cached when Config leaves
// CacheSize at zero.
const DefaultCacheSize = 1024

var (
	offerPrefix    = []byte("o/")
	nextKey        = []byte("m/next")
	sequencePrefix = []byte("s/")
)

// Config configures a Store.
type Config struct {
	// CacheSize is the number of decoded offers kept in memory. Zero selects
	// DefaultCacheSize, negative disables the cache.
	CacheSize int

	// Compression names a registered compressor; empty means none. It must
	// not change for an existing database.
	Compression string

	Logger *zap.Logger
}

// Store implements market.OfferStore over a database.DB.
type Store struct {
	mu     sync.Mutex
	db     database.DB
	codec  compression.Compressor
	cache  *lru.Cache[uint64, market.Offer]
	next   uint64
	logger *zap.Logger

	hits   uint64
	misses uint64
}

var (
	_ market.OfferStore   = (*Store)(nil)
	_ market.OfferScanner = (*Store)(nil)
)

// Open loads the id counter from db.
func Open(ctx context.Context, db database.DB, cfg Config) (*Store, error) {
	c, err := compression.Get(cfg.Compression)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, codec: c, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		if s.cache, err = lru.New[uint64, market.Offer](size); err != nil {
			return nil, err
		}
	}

	raw, err := db.Read(ctx, nextKey)
	switch {
	case errors.Is(err, database.ErrKeyNotFound):
	case err != nil:
		return nil, fmt.Errorf("read offer counter: %w", err)
	case len(raw) != 8:
		return nil, fmt.Errorf("%w: counter length %d", ErrBadRecord, len(raw))
	default:
		s.next = binary.BigEndian.Uint64(raw)
	}

	s.logger.Info("offer store opened",
		zap.Uint64("next_id", s.next),
		zap.String("compression", c.Name()),
		zap.Int("cache_size", size))
	return s, nil
}

func (s *Store) NextID(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, nil
}

func (s *Store) Get(ctx context.Context, id uint64) (market.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id >= s.next {
		return market.Offer{}, nil
	}
	if s.cache != nil {
		if o, ok := s.cache.Get(id); ok {
			s.hits++
			return o.Clone(), nil
		}
	}
	s.misses++

	raw, err := s.db.Read(ctx, offerKey(id))
	if err != nil {
		// Allocated ids always have a record.
		return market.Offer{}, fmt.Errorf("read offer %d: %w", id, err)
	}
	plain, err := s.codec.Decompress(raw)
	if err != nil {
		return market.Offer{}, fmt.Errorf("offer %d: %w", id, err)
	}
	o, err := decodeOffer(plain)
	if err != nil {
		return market.Offer{}, fmt.Errorf("offer %d: %w", id, err)
	}

	if s.cache != nil {
		s.cache.Add(id, o.Clone())
	}
	return o, nil
}

func (s *Store) Put(ctx context.Context, id uint64, offer market.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.next {
		return fmt.Errorf("%w: %d (next %d)", market.ErrIDNotAllocated, id, s.next)
	}

	plain, err := encodeOffer(offer)
	if err != nil {
		return err
	}
	packed, err := s.codec.Compress(plain)
	if err != nil {
		return fmt.Errorf("compress offer %d: %w", id, err)
	}

	ops := []database.BatchOperation{database.Put(offerKey(id), packed)}
	allocating := id == s.next
	if allocating {
		ops = append(ops, database.Put(nextKey, be64(id+1)))
	}
	if err := s.db.Batch(ctx, ops); err != nil {
		return fmt.Errorf("write offer %d: %w", id, err)
	}

	if allocating {
		s.next++
	}
	if s.cache != nil {
		s.cache.Add(id, offer.Clone())
	}
	return nil
}

// Scan calls fn for every stored offer with id >= from, in id order, until fn
// returns false.
func (s *Store) Scan(ctx context.Context, from uint64, fn func(id uint64, o market.Offer) bool) error {
	it, err := s.db.Iterator(ctx, offerKey(from), database.PrefixEnd(offerPrefix))
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		key := it.Key()
		if len(key) != len(offerPrefix)+8 {
			return fmt.Errorf("%w: key %x", ErrBadRecord, key)
		}
		id := binary.BigEndian.Uint64(key[len(offerPrefix):])

		plain, err := s.codec.Decompress(it.Value())
		if err != nil {
			return fmt.Errorf("offer %d: %w", id, err)
		}
		o, err := decodeOffer(plain)
		if err != nil {
			return fmt.Errorf("offer %d: %w", id, err)
		}
		if !fn(id, o) {
			break
		}
	}
	return it.Error()
}

// LastSequence returns the last signed tx sequence accepted from a.
func (s *Store) LastSequence(ctx context.Context, a account.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSequence(ctx, a)
}

// AcceptSequence stores seq for a when it is above the last one.
func (s *Store) AcceptSequence(ctx context.Context, a account.Address, seq uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.lastSequence(ctx, a)
	if err != nil {
		return false, err
	}
	if seq <= last {
		return false, nil
	}
	if err := s.db.Write(ctx, sequenceKey(a), be64(seq)); err != nil {
		return false, fmt.Errorf("write sequence of %s: %w", a, err)
	}
	return true, nil
}

func (s *Store) lastSequence(ctx context.Context, a account.Address) (uint64, error) {
	raw, err := s.db.Read(ctx, sequenceKey(a))
	switch {
	case errors.Is(err, database.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read sequence of %s: %w", a, err)
	case len(raw) != 8:
		return 0, fmt.Errorf("%w: sequence length %d", ErrBadRecord, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Stats holds cache counters.
type Stats struct {
	NextID   uint64
	Hits     uint64
	Misses   uint64
	HitRate  float64
	CacheLen int
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{NextID: s.next, Hits: s.hits, Misses: s.misses}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	if s.cache != nil {
		st.CacheLen = s.cache.Len()
	}
	return st
}

func offerKey(id uint64) []byte {
	key := make([]byte, len(offerPrefix)+8)
	copy(key, offerPrefix)
	binary.BigEndian.PutUint64(key[len(offerPrefix):], id)
	return key
}

func sequenceKey(a account.Address) []byte {
	return append(append([]byte{}, sequencePrefix...), a.Bytes()...)
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
