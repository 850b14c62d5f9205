package di

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"data-migration/domain/legacy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingProvider struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (p *countingProvider) Metadata(context.Context) (*legacy.Metadata, error) {
	p.calls.Add(1)
	time.Sleep(p.delay)
	if p.err != nil {
		return nil, p.err
	}
	return &legacy.Metadata{
		ServiceTypes: map[int]legacy.ServiceType{100: {ID: 100, Name: "GP Practice"}},
	}, nil
}

func TestMetadataCache_LoadsOnce(t *testing.T) {
	source := &countingProvider{}
	cache := NewMetadataCache(source, time.Minute, zap.NewNop())

	first, err := cache.Metadata(context.Background())
	require.NoError(t, err)
	second, err := cache.Metadata(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestMetadataCache_ConcurrentMissesShareLoad(t *testing.T) {
	source := &countingProvider{delay: 50 * time.Millisecond}
	cache := NewMetadataCache(source, time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Metadata(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())
}

func TestMetadataCache_Expires(t *testing.T) {
	source := &countingProvider{}
	cache := NewMetadataCache(source, 10*time.Millisecond, zap.NewNop())

	_, err := cache.Metadata(context.Background())
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = cache.Metadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), source.calls.Load())
}

func TestMetadataCache_ErrorsAreNotCached(t *testing.T) {
	source := &countingProvider{err: errors.New("connection refused")}
	cache := NewMetadataCache(source, time.Minute, zap.NewNop())

	_, err := cache.Metadata(context.Background())
	require.Error(t, err)

	source.err = nil
	metadata, err := cache.Metadata(context.Background())
	require.NoError(t, err)
	assert.Contains(t, metadata.ServiceTypes, 100)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestMetadataCache_Invalidate(t *testing.T) {
	source := &countingProvider{}
	cache := NewMetadataCache(source, 0, zap.NewNop())

	_, err := cache.Metadata(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Metadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), source.calls.Load())
}
