package allocator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/repository/memory"
)

type brokenCounter struct{}

func (brokenCounter) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("store unavailable")
}

func TestAllocatePrefixesAndCounters(t *testing.T) {
	a := New(memory.NewStore(), nil)
	ctx := context.Background()

	tests := []struct {
		kind models.QuoteKind
		want string
	}{
		{models.QuoteKindBulk, "BulkQuote-1"},
		{models.QuoteKindSampleCourier, "SampleCourier-1"},
		{models.QuoteKindCart, "BulkQuote-2"},
		{models.QuoteKindBulk, "BulkQuote-3"},
	}
	for _, tt := range tests {
		got, err := a.Allocate(ctx, tt.kind)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.QuoteID)
	}

	_, err := a.Allocate(ctx, "barter")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConcurrentAllocationsAreUniqueAndDense(t *testing.T) {
	a := New(memory.NewStore(), nil)
	ctx := context.Background()

	const n = 200
	seqs := make([]int64, n)
	ids := make(map[string]struct{}, n)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := models.QuoteKindBulk
			if i%2 == 0 {
				kind = models.QuoteKindCart
			}
			alloc, err := a.Allocate(ctx, kind)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			seqs[i] = alloc.Sequence
			ids[alloc.QuoteID] = struct{}{}
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, n)
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		require.EqualValues(t, i+1, s, fmt.Sprintf("sequence %d", i))
	}
}

func TestAllocationFailureIsRetryable(t *testing.T) {
	_, err := New(brokenCounter{}, nil).Allocate(context.Background(), models.QuoteKindBulk)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAllocation)
	assert.Contains(t, err.Error(), "bulkQuote")
}
