package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyclus/dbtypes/internal/source"
	"github.com/cyclus/dbtypes/pkg/table"
	"github.com/cyclus/dbtypes/pkg/types"
)

// countingSource wraps the embedded table and counts reads. The first
// failUntil reads fail.
type countingSource struct {
	reads     atomic.Int32
	failUntil int32
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Table(ctx context.Context) (*table.Table, error) {
	n := s.reads.Add(1)
	if n <= s.failUntil {
		return nil, errors.New("not yet")
	}
	return source.Embedded().Table(ctx)
}

func TestProvider_ConcurrentGet(t *testing.T) {
	src := &countingSource{}
	p := NewProvider(src)

	const goroutines = 16
	regs := make([]*Registry, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := p.Get(context.Background())
			assert.NoError(t, err)
			regs[i] = reg
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.reads.Load())
	for _, reg := range regs {
		assert.Same(t, regs[0], reg)
	}
}

func TestProvider_FailureNotCached(t *testing.T) {
	src := &countingSource{failUntil: 1}
	p := NewProvider(src)

	_, err := p.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)

	reg, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1056, reg.Len())
	assert.Equal(t, int32(2), src.reads.Load())
}

func TestDefault(t *testing.T) {
	a := Default()
	b := Default()
	assert.Same(t, a, b)
	assert.True(t, a.IsSupported(6, types.BackendSQLite, v10))
}
