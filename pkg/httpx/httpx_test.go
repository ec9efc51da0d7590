package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcmetrics/pkg/provider"
)

func TestCallerGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "btcmetrics-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":43000}}`))
	}))
	defer srv.Close()

	caller := NewCaller(WithUserAgent("btcmetrics-test"))
	desc := provider.Descriptor{Name: "coingecko", BaseURL: srv.URL + "/api/v3/", AuthHeaders: map[string]string{"X-Api-Key": "secret"}}
	body, err := caller.Get(context.Background(), desc, "/simple/price", provider.Params{"ids": "bitcoin", "vs_currencies": "usd"})
	require.NoError(t, err)
	require.JSONEq(t, `{"bitcoin":{"usd":43000}}`, string(body))
}

func TestCallerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down\n"))
	}))
	defer srv.Close()

	_, err := NewCaller().Get(context.Background(), provider.Descriptor{Name: "coingecko", BaseURL: srv.URL}, "/ping", nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	require.Equal(t, "slow down", se.Body)
	require.Equal(t, http.StatusTooManyRequests, StatusCode(fmt.Errorf("wrapped: %w", err)))
	require.EqualError(t, err, "coingecko: http status 429: slow down")
}

func TestCallerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	desc := provider.Descriptor{Name: "slow", BaseURL: srv.URL, Timeout: 20 * time.Millisecond}
	_, err := NewCaller().Get(context.Background(), desc, "/", nil)
	require.Error(t, err)
	require.True(t, IsNetworkError(err))
	require.Zero(t, StatusCode(err))
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "aborted", err: syscall.ECONNABORTED, want: true},
		{name: "timed out", err: syscall.ETIMEDOUT, want: true},
		{name: "refused", err: syscall.ECONNREFUSED, want: false},
		{name: "status", err: &StatusError{StatusCode: 503}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL("https://api.kraken.com/0/public/", "Ticker", provider.Params{"pair": "XXBTZUSD"})
	require.NoError(t, err)
	require.Equal(t, "https://api.kraken.com/0/public/Ticker?pair=XXBTZUSD", got)

	got, err = BuildURL("https://mempool.space/api", "/v1/fees/recommended", nil)
	require.NoError(t, err)
	require.Equal(t, "https://mempool.space/api/v1/fees/recommended", got)
}
