package dashboard

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader reads the full dataset from its backing store.
type Loader interface {
	Load(ctx context.Context) (*domain.Dataset, error)
}

// Source is the process-wide, lazily loaded dataset handle. The first
// successful load is kept for the life of the Source; concurrent first
// callers share one load. Failed loads are not kept, so the next call retries.
type Source struct {
	loader Loader
	group  singleflight.Group
	cached atomic.Pointer[domain.Dataset]
}

// NewSource creates a Source backed by loader. Nothing is read until the
// first call to Dataset.
func NewSource(loader Loader) *Source {
	return &Source{loader: loader}
}

// Dataset returns the loaded dataset, loading it on first use. Callers must
// treat the result as read-only. The load runs detached from ctx so one
// caller giving up cannot cut it short; that caller returns ctx.Err() while
// the load carries on for the others.
func (s *Source) Dataset(ctx context.Context) (*domain.Dataset, error) {
	if ds := s.cached.Load(); ds != nil {
		return ds, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("dataset", func() (any, error) {
		if ds := s.cached.Load(); ds != nil {
			return ds, nil
		}
		ds, err := s.loader.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.cached.Store(ds)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Dataset), nil
	}
}

// Loaded reports whether the dataset has been loaded.
func (s *Source) Loaded() bool {
	return s.cached.Load() != nil
}

// CheckReadiness returns nil once the dataset is loaded.
func (s *Source) CheckReadiness(_ context.Context) error {
	if !s.Loaded() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}
