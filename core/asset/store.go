package asset

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/types"
)

// Store is a read-through cache of watermark assets. It holds at most one
// entry per size class. Concurrent misses for the same class share a single
// load, and failed loads are not remembered.
type Store struct {
	table Table
	log   zerolog.Logger

	mu      sync.RWMutex
	entries map[classify.SizeClass]*Asset
	group   singleflight.Group
	loads   atomic.Int64
}

// NewStore creates an empty store over table
func NewStore(table Table, logger zerolog.Logger) *Store {
	return &Store{
		table:   table,
		log:     logger.With().Str("component", "asset").Logger(),
		entries: make(map[classify.SizeClass]*Asset, len(classify.AllClasses)),
	}
}

// Table returns the mapping the store reads from
func (s *Store) Table() Table {
	return s.table
}

// Get returns the asset for class, loading it on first use
func (s *Store) Get(ctx context.Context, class classify.SizeClass) (*Asset, error) {
	s.mu.RLock()
	a, ok := s.entries[class]
	s.mu.RUnlock()
	if ok {
		return a, nil
	}

	path, ok := s.table.Path(class)
	if !ok {
		return nil, types.NewPDFErrorf(types.ErrCodeAssetLoad, "no watermark configured for %s", class)
	}

	ch := s.group.DoChan(class.String(), func() (interface{}, error) {
		s.mu.RLock()
		cached, ok := s.entries[class]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		s.loads.Add(1)
		loaded, err := Load(class, path)
		if err != nil {
			return nil, err
		}
		s.log.Debug().
			Str("class", class.String()).
			Str("path", path).
			Int("width", loaded.Width).
			Int("height", loaded.Height).
			Str("format", loaded.Format).
			Msg("watermark loaded")

		s.mu.Lock()
		s.entries[class] = loaded
		s.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Asset), nil
	}
}

// Len returns the number of cached assets
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Loads returns how many times an asset file has been read from disk
func (s *Store) Loads() int64 {
	return s.loads.Load()
}
