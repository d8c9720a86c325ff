package pool

import (
	"fmt"
	"log/slog"
)

// LoadBalancer spreads new sessions over the pool's endpoints
type LoadBalancer struct {
	pool *Pool
}

func NewLoadBalancer(pool *Pool) *LoadBalancer {
	return &LoadBalancer{
		pool: pool,
	}
}

// SelectEndpoint picks the healthy endpoint with the fewest sessions.
// Ties go to the endpoint added first.
func (lb *LoadBalancer) SelectEndpoint() (*Endpoint, error) {
	endpoints := lb.pool.GetEndpoints()
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints in the pool")
	}

	var selected *Endpoint
	var minSessions int64 = -1

	for _, e := range endpoints {
		if !e.IsHealthy() {
			slog.Debug("skipping unhealthy endpoint", "url", e.URL())
			continue
		}

		sessionCount := e.GetSessionCount()
		if minSessions == -1 || sessionCount < minSessions {
			minSessions = sessionCount
			selected = e
		}
	}

	if selected == nil {
		return nil, fmt.Errorf("no healthy endpoints in the pool")
	}

	slog.Debug("selected endpoint",
		"url", selected.URL(),
		"current_sessions", selected.GetSessionCount())

	return selected, nil
}

// Lookup finds an endpoint by URL, see Pool.Lookup.
func (lb *LoadBalancer) Lookup(rawURL string) (*Endpoint, bool) {
	return lb.pool.Lookup(rawURL)
}

func (lb *LoadBalancer) GetEndpoints() []*Endpoint {
	return lb.pool.GetEndpoints()
}

func (lb *LoadBalancer) GetMetrics() PoolMetrics {
	return lb.pool.GetMetrics()
}
