package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/puzpuzpuz/xsync/v3"
)

var pingKey = []byte("\x00ping")

// PebbleStore keeps records in an embedded pebble database. Writes to the same
// path are serialized with a per-path mutex held across read, compare and commit.
type PebbleStore struct {
	db    *pebble.DB
	locks *xsync.MapOf[string, *pathLock]
}

// pathLock is dropped from the lock table once its last holder or waiter
// releases it. refs is only touched inside MapOf.Compute.
type pathLock struct {
	mu   sync.Mutex
	refs int
}

type pebbleEntry struct {
	Stamp      *int64 `json:"s,omitempty"`
	ModifiedAt int64  `json:"m"`
	Value      []byte `json:"v"`
}

// OpenPebble opens (or creates) a pebble database in dir. opts may be nil.
func OpenPebble(dir string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &PebbleStore{db: db, locks: xsync.NewMapOf[string, *pathLock]()}, nil
}

func (s *PebbleStore) Get(ctx context.Context, path string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := readEntry(s.db, path)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	rec := entry.record(path)
	return &rec, nil
}

func (s *PebbleStore) Children(ctx context.Context, parent string) ([]Record, error) {
	prefix := parent + "/"
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(parent + "0"), // '0' sorts right after '/'
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", parent, err)
	}
	defer iter.Close()

	var out []Record
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := string(iter.Key())
		if strings.Contains(key[len(prefix):], "/") {
			continue
		}
		var entry pebbleEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, entry.record(key))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list %s: %w", parent, err)
	}
	return out, nil
}

func (s *PebbleStore) Apply(ctx context.Context, writes []Write) ([]bool, error) {
	applied := make([]bool, len(writes))
	if len(writes) == 0 {
		return applied, nil
	}

	unlock := s.lockPaths(writes)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	for i, w := range writes {
		current, err := readEntry(batch, w.Path)
		if err != nil {
			return nil, err
		}
		if current != nil && !Wins(current.Stamp, w.Stamp) {
			continue
		}
		data, err := json.Marshal(pebbleEntry{Stamp: w.Stamp, ModifiedAt: w.ModifiedAt, Value: w.Value})
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", w.Path, err)
		}
		if err := batch.Set([]byte(w.Path), data, nil); err != nil {
			return nil, fmt.Errorf("write %s: %w", w.Path, err)
		}
		applied[i] = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return applied, nil
}

func (s *PebbleStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, closer, err := s.db.Get(pingKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return closer.Close()
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// lockPaths takes the mutex of every distinct path in sorted order, so two
// batches touching overlapping paths cannot deadlock.
func (s *PebbleStore) lockPaths(writes []Write) func() {
	paths := make([]string, 0, len(writes))
	seen := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		if _, ok := seen[w.Path]; ok {
			continue
		}
		seen[w.Path] = struct{}{}
		paths = append(paths, w.Path)
	}
	sort.Strings(paths)

	held := make([]*pathLock, 0, len(paths))
	for _, p := range paths {
		l, _ := s.locks.Compute(p, func(l *pathLock, loaded bool) (*pathLock, bool) {
			if !loaded {
				l = &pathLock{}
			}
			l.refs++
			return l, false
		})
		l.mu.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			s.locks.Compute(paths[i], func(l *pathLock, loaded bool) (*pathLock, bool) {
				l.refs--
				return l, l.refs == 0
			})
		}
	}
}

type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func readEntry(r pebbleReader, path string) (*pebbleEntry, error) {
	data, closer, err := r.Get([]byte(path))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer closer.Close()

	var entry pebbleEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &entry, nil
}

func (e pebbleEntry) record(path string) Record {
	return Record{Path: path, Stamp: e.Stamp, ModifiedAt: e.ModifiedAt, Value: e.Value}
}
