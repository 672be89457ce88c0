package fxrate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUSDRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"base":"USD","rates":{"USD":1,"COP":4123.5,"eur":0.92}}`)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTPClient: &http.Client{Timeout: time.Second}}

	rate, err := c.USDRate(context.Background(), "cop")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("4123.5")))

	rate, err = c.USDRate(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.92", rate.String())

	_, err = c.USDRate(context.Background(), "BRL")
	require.ErrorIs(t, err, ErrUnknownCurrency)

	usd, err := c.USDRate(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, usd.Equal(decimal.NewFromInt(1)))
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTPClient: &http.Client{Timeout: time.Second}}
	_, err := c.Rates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"rates":{}}`)
	}))
	defer empty.Close()
	c.URL = empty.URL
	_, err = c.Rates(context.Background())
	require.Error(t, err)
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTPClient: &http.Client{Timeout: 50 * time.Millisecond}}
	start := time.Now()
	_, err := c.Rates(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClientCoalescesConcurrentFetches(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = io.WriteString(w, `{"rates":{"COP":4000}}`)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTPClient: &http.Client{Timeout: 2 * time.Second}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := c.USDRate(context.Background(), "COP")
			assert.NoError(t, err)
			assert.True(t, rate.Equal(decimal.NewFromInt(4000)))
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// No cache: the next call goes to the provider again.
	_, err := c.USDRate(context.Background(), "COP")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestFallbackRate(t *testing.T) {
	cop, ok := FallbackRate("cop")
	require.True(t, ok)
	assert.True(t, cop.Equal(decimal.NewFromInt(4000)))

	usd, ok := FallbackRate("USD")
	require.True(t, ok)
	assert.True(t, usd.Equal(decimal.NewFromInt(1)))

	_, ok = FallbackRate("BRL")
	assert.False(t, ok)
}
