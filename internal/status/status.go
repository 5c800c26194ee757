// Package status summarises how far the listings backend has synced the chain.
package status

import (
	"context"
	"strconv"
	"sync"
	"time"

	"spacesprotocol.org/marketplace-web/internal/marketapi"
)

// States reported by a Summary.
const (
	StateOperational = "operational"
	StateDegraded    = "degraded"
	StateDown        = "down"
)

// maxLag is how many blocks the indexer may trail the daemon before the
// marketplace is reported as degraded.
const maxLag = 2

const (
	defaultTTL      = 30 * time.Second
	defaultErrorTTL = 10 * time.Second
)

// Summary captures the backend sync state shown on /status.
type Summary struct {
	State      string
	StateKey   string
	UpdatedAt  time.Time
	Components []Component
	Lag        int64
	Error      string
}

// Component represents the status of an individual subsystem.
type Component struct {
	Name   string
	Status string
	Height int64
	Hash   string
}

// HealthSource reports the backend health check.
type HealthSource interface {
	Health(ctx context.Context) (marketapi.Health, error)
}

// Client caches summaries built from a HealthSource.
type Client struct {
	source HealthSource
	now    func() time.Time

	mu       sync.RWMutex
	ttl      time.Duration
	errorTTL time.Duration
	cached   *statusCacheEntry
}

type statusCacheEntry struct {
	summary Summary
	expires time.Time
}

// NewClient builds a status client over source.
func NewClient(source HealthSource) *Client {
	return &Client{
		source:   source,
		now:      time.Now,
		ttl:      defaultTTL,
		errorTTL: defaultErrorTTL,
	}
}

// SetCacheTTL configures the cache duration for healthy and failed lookups.
func (c *Client) SetCacheTTL(ok, failed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ok
	c.errorTTL = failed
	c.cached = nil
}

// FetchSummary returns the cached summary or queries the backend. Backend failures
// are reported inside the summary rather than as an error.
func (c *Client) FetchSummary(ctx context.Context) Summary {
	now := c.now()
	c.mu.RLock()
	entry := c.cached
	c.mu.RUnlock()
	if entry != nil && now.Before(entry.expires) {
		return cloneSummary(entry.summary)
	}

	health, err := c.source.Health(ctx)
	summary := buildSummary(health, err, now)

	ttl := c.ttl
	if err != nil {
		ttl = c.errorTTL
	}
	c.mu.Lock()
	if ttl > 0 {
		c.cached = &statusCacheEntry{summary: cloneSummary(summary), expires: now.Add(ttl)}
	}
	c.mu.Unlock()
	return summary
}

func buildSummary(h marketapi.Health, err error, now time.Time) Summary {
	if err != nil {
		return Summary{
			State:     StateDown,
			StateKey:  "status.state.down",
			UpdatedAt: now,
			Error:     err.Error(),
			Components: []Component{
				{Name: "status.component.indexer", Status: StateDown},
				{Name: "status.component.daemon", Status: StateDown},
			},
		}
	}

	lag := h.SpacedHeight - int64(h.Height)
	if lag < 0 {
		lag = -lag
	}
	indexer := Component{Name: "status.component.indexer", Status: StateOperational, Height: int64(h.Height), Hash: h.Hash}
	daemon := Component{Name: "status.component.daemon", Status: StateOperational, Height: h.SpacedHeight, Hash: h.SpacedHash}
	state := StateOperational
	if lag > maxLag {
		state = StateDegraded
		indexer.Status = StateDegraded
	}
	return Summary{
		State:      state,
		StateKey:   "status.state." + state,
		UpdatedAt:  now,
		Components: []Component{indexer, daemon},
		Lag:        lag,
	}
}

// HeightLabel formats a component height for display.
func (c Component) HeightLabel() string {
	if c.Height <= 0 {
		return "-"
	}
	return strconv.FormatInt(c.Height, 10)
}

func cloneSummary(src Summary) Summary {
	cp := src
	if src.Components != nil {
		cp.Components = append([]Component(nil), src.Components...)
	}
	return cp
}
