// Package journal persists every candidate receipt this collator produces.
// It is a side store only: the subsystem never reads it back on the hot
// path, and a journal failure never blocks or fails collation work. The
// records exist for crash diagnostics and operator inspection.
package journal

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/selendra/indracore/internal/primitives"
)

// syncInterval is the interval between WAL syncs. Writes are NoSync and a
// background goroutine flushes periodically, so a crash can lose at most
// the last interval of records.
const syncInterval = 200 * time.Millisecond

var (
	receiptPrefix = []byte("receipt/")
	relayPrefix   = []byte("relay/")
)

// Store is a pebble-backed receipt journal.
type Store struct {
	db       *pebble.DB
	stopSync chan struct{}
	wg       sync.WaitGroup
}

// Open creates or reopens a journal at path and starts the WAL sync loop.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	s := &Store{
		db:       db,
		stopSync: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.syncLoop()

	return s, nil
}

func (s *Store) syncLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.db.LogData(nil, pebble.Sync)
		case <-s.stopSync:
			return
		}
	}
}

// Record stores one produced receipt, keyed by candidate hash and indexed
// by relay parent.
func (s *Store) Record(receipt *primitives.CandidateReceipt) error {
	candidate := receipt.Hash()

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(receiptKey(candidate), receipt.Encode(), nil); err != nil {
		return fmt.Errorf("journal receipt: %w", err)
	}

	if err := batch.Set(relayKey(receipt.Descriptor.RelayParent, candidate), candidate[:], nil); err != nil {
		return fmt.Errorf("journal relay index: %w", err)
	}

	if err := batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("commit journal batch: %w", err)
	}

	return nil
}

// Get returns the receipt for a candidate hash, or nil if unknown.
func (s *Store) Get(candidate primitives.Hash) (*primitives.CandidateReceipt, error) {
	value, closer, err := s.db.Get(receiptKey(candidate))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer closer.Close()

	return primitives.DecodeCandidateReceipt(value)
}

// ByRelayParent returns the hashes of all candidates journaled for a relay
// parent, in key order.
func (s *Store) ByRelayParent(relayParent primitives.Hash) ([]primitives.Hash, error) {
	prefix := relayKey(relayParent, primitives.Hash{})
	prefix = prefix[:len(relayPrefix)+32]

	upper := prefixSuccessor(prefix)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	defer iter.Close()

	var out []primitives.Hash
	for iter.First(); iter.Valid(); iter.Next() {
		var h primitives.Hash
		copy(h[:], iter.Value())
		out = append(out, h)
	}

	return out, iter.Error()
}

// Close stops the sync loop and closes the database after a final sync.
func (s *Store) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	_ = s.db.LogData(nil, pebble.Sync)

	return s.db.Close()
}

func receiptKey(candidate primitives.Hash) []byte {
	return append(append([]byte{}, receiptPrefix...), candidate[:]...)
}

func relayKey(relayParent, candidate primitives.Hash) []byte {
	key := append(append([]byte{}, relayPrefix...), relayParent[:]...)
	return append(key, candidate[:]...)
}

// prefixSuccessor returns the smallest key greater than every key starting
// with prefix, for use as an exclusive iterator upper bound. Appending a
// sentinel byte would not do: the result sorts before longer keys that
// share the prefix.
func prefixSuccessor(prefix []byte) []byte {
	upper := append([]byte{}, prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}

	// All 0xff: no upper bound.
	return nil
}
