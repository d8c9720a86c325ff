package pool

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruvsoni1802/browser-webdriver/internal/testutil/fakedriver"
)

func TestNewPool(t *testing.T) {
	a := fakedriver.New(t)
	b := fakedriver.New(t)

	p, err := New([]string{a.URL, b.URL + "/"})
	require.NoError(t, err)
	assert.Equal(t, 2, p.GetEndpointCount())

	e, ok := p.Lookup(b.URL)
	require.True(t, ok)
	assert.Equal(t, b.URL, e.URL())

	_, ok = p.Lookup("http://elsewhere:4444")
	assert.False(t, ok)
}

func TestNewPoolRejectsBadAndDuplicateURLs(t *testing.T) {
	_, err := New([]string{"not a url"})
	assert.Error(t, err)

	_, err = New([]string{"http://localhost:4444", "http://localhost:4444/"})
	assert.Error(t, err)
}

func TestCheckHealth(t *testing.T) {
	ready := fakedriver.New(t)
	busy := fakedriver.New(t)
	busy.SetReady(false)
	broken := fakedriver.New(t)
	broken.Override(http.MethodGet, "/status", http.StatusInternalServerError, "down")

	p, err := New([]string{ready.URL, busy.URL, broken.URL})
	require.NoError(t, err)

	p.CheckHealth(context.Background())

	metrics := p.GetMetrics()
	require.Len(t, metrics.Endpoints, 3)
	assert.Equal(t, 1, metrics.Healthy)
	assert.True(t, metrics.Endpoints[0].Healthy)
	assert.False(t, metrics.Endpoints[1].Healthy)
	assert.Equal(t, "busy", metrics.Endpoints[1].Message)
	assert.False(t, metrics.Endpoints[2].Healthy)
	assert.False(t, metrics.Endpoints[2].LastChecked.IsZero())
}

func TestLoadBalancerSelectsLeastLoaded(t *testing.T) {
	a := fakedriver.New(t)
	b := fakedriver.New(t)

	p, err := New([]string{a.URL, b.URL})
	require.NoError(t, err)
	lb := NewLoadBalancer(p)

	first, err := lb.SelectEndpoint()
	require.NoError(t, err)
	assert.Equal(t, a.URL, first.URL())

	first.IncrementSessionCount()
	second, err := lb.SelectEndpoint()
	require.NoError(t, err)
	assert.Equal(t, b.URL, second.URL())

	// Unhealthy endpoints are skipped even when idle
	b.SetReady(false)
	p.CheckHealth(context.Background())
	selected, err := lb.SelectEndpoint()
	require.NoError(t, err)
	assert.Equal(t, a.URL, selected.URL())

	a.SetReady(false)
	p.CheckHealth(context.Background())
	_, err = lb.SelectEndpoint()
	assert.Error(t, err)
}

func TestLoadBalancerEmptyPool(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	_, err = NewLoadBalancer(p).SelectEndpoint()
	assert.Error(t, err)
}

func TestSessionCountNeverNegative(t *testing.T) {
	p, err := New([]string{"http://localhost:4444"})
	require.NoError(t, err)
	e := p.GetEndpoints()[0]

	e.DecrementSessionCount()
	assert.Equal(t, int64(0), e.GetSessionCount())

	e.IncrementSessionCount()
	e.IncrementSessionCount()
	e.DecrementSessionCount()
	assert.Equal(t, int64(1), e.GetSessionCount())
}

func TestShutdownWithoutManagedDrivers(t *testing.T) {
	p, err := New([]string{"http://localhost:4444"})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown())
	assert.Equal(t, 0, p.GetEndpointCount())
}

func TestStartDriversValidatesCount(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	assert.Error(t, p.StartDrivers(context.Background(), "/usr/bin/chromedriver", 0))
	assert.Error(t, p.StartDrivers(context.Background(), "/nonexistent/chromedriver", 1))
	assert.Equal(t, 0, p.GetEndpointCount())
}
