package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcmetrics/internal/config"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "btcmetrics:price:usd", PriceKey("USD", nil))
	assert.Equal(t, "btcmetrics:price:eur:skip=binance,coingecko", PriceKey("eur", []string{"CoinGecko", " binance", ""}))
	assert.Equal(t, "btcmetrics:volume:usd", VolumeKey("usd", []string{" "}))
	assert.Equal(t, "btcmetrics:history:usd:30", HistoryKey("usd", 30, nil))
	assert.Equal(t, "btcmetrics:chain:v1/fees/recommended", ChainKey("/v1/fees/recommended", nil))
}

func TestNewTTLSet(t *testing.T) {
	ttl := NewTTLSet(config.CacheTTL{Price: 0, Chain: -1, History: time.Minute})
	assert.Equal(t, 10*time.Second, ttl.Duration(TTLPrice))
	assert.Zero(t, ttl.Duration(TTLChain))
	assert.Equal(t, time.Minute, ttl.Duration(TTLHistory))
	assert.Zero(t, ttl.Duration("unknown"))
}

func TestStoreTake(t *testing.T) {
	store, err := NewStore(NewTTLSet(config.CacheTTL{}))
	require.NoError(t, err)

	var calls atomic.Int32
	fetch := func() (float64, error) {
		calls.Add(1)
		return 43250.1, nil
	}
	for i := 0; i < 3; i++ {
		v, err := Take(store, PriceKey("usd", nil), TTLPrice, fetch)
		require.NoError(t, err)
		assert.Equal(t, 43250.1, v)
	}
	assert.EqualValues(t, 1, calls.Load())

	store.Del(PriceKey("usd", nil))
	_, err = Take(store, PriceKey("usd", nil), TTLPrice, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestStoreDoesNotCacheErrors(t *testing.T) {
	store, err := NewStore(NewTTLSet(config.CacheTTL{}))
	require.NoError(t, err)

	var calls int
	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := store.Take("k", TTLChain, func() (any, error) {
			calls++
			return nil, boom
		})
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 2, calls)
}

func TestStoreDisabledClass(t *testing.T) {
	store, err := NewStore(NewTTLSet(config.CacheTTL{Chain: -1}))
	require.NoError(t, err)

	var calls int
	for i := 0; i < 2; i++ {
		_, err := store.Take("k", TTLChain, func() (any, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)

	var nilStore *Store
	v, err := nilStore.Take("k", TTLPrice, func() (any, error) { return "direct", nil })
	require.NoError(t, err)
	assert.Equal(t, "direct", v)
}

func TestStoreSharesConcurrentMiss(t *testing.T) {
	store, err := NewStore(NewTTLSet(config.CacheTTL{}))
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Take("shared", TTLHistory, func() (any, error) {
				calls.Add(1)
				<-release
				return "chart", nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestTakeTypeMismatch(t *testing.T) {
	store, err := NewStore(NewTTLSet(config.CacheTTL{}))
	require.NoError(t, err)
	_, err = store.Take("k", TTLPrice, func() (any, error) { return "text", nil })
	require.NoError(t, err)

	_, err = Take(store, "k", TTLPrice, func() (int, error) { return 1, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds string")
}
