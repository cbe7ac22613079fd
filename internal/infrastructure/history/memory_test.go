package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricespy/backend/internal/domain"
)

func TestMemoryStore_Prune(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, 1, testRecord("old", 1, baseTime.Add(-48*time.Hour))))
	require.NoError(t, store.Append(ctx, 1, testRecord("older", 1, baseTime.Add(-72*time.Hour))))
	require.NoError(t, store.Append(ctx, 1, testRecord("new", 1, baseTime)))
	require.NoError(t, store.Append(ctx, 2, testRecord("only", 1, baseTime.Add(-72*time.Hour))))
	assert.Equal(t, 4, store.Size())

	store.prune(baseTime.Add(-24 * time.Hour))

	assert.Equal(t, 2, store.Size())

	records, err := store.List(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].ID)

	// The latest record survives even when it is past the window
	latest, err := store.GetLatest(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "only", latest.ID)
}

func TestMemoryStore_PruneDropsOldLogs(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.AppendLog(ctx, testLog(1, domain.ExtractionStatusError, baseTime.Add(-48*time.Hour))))
	require.NoError(t, store.AppendLog(ctx, testLog(1, domain.ExtractionStatusSuccess, baseTime)))

	store.prune(baseTime.Add(-24 * time.Hour))

	logs, err := store.ListLogs(ctx, domain.ExtractionLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ExtractionStatusSuccess, logs[0].Status)

	// Ids keep counting after a prune
	next := testLog(2, domain.ExtractionStatusSuccess, baseTime.Add(time.Minute))
	require.NoError(t, store.AppendLog(ctx, next))
	assert.Equal(t, int64(3), next.ID)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := int64(i%5 + 1)
			_ = store.Append(ctx, id, testRecord("", float64(i+1), baseTime.Add(time.Duration(i)*time.Minute)))
			_, _ = store.GetLatest(ctx, id)
			_, _ = store.List(ctx, id, 3)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Size())
	for id := int64(1); id <= 5; id++ {
		records, err := store.List(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, records, 10)
		for j := 1; j < len(records); j++ {
			assert.False(t, records[j].CapturedAt.After(records[j-1].CapturedAt))
		}
	}
}
