package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spacesprotocol.org/marketplace-web/internal/marketapi"
)

type fakeSource struct {
	health marketapi.Health
	err    error
	calls  int
}

func (f *fakeSource) Health(context.Context) (marketapi.Health, error) {
	f.calls++
	return f.health, f.err
}

func TestSummaryOperational(t *testing.T) {
	src := &fakeSource{health: marketapi.Health{Height: 870000, Hash: "aa", SpacedHeight: 870001, SpacedHash: "bb"}}
	summary := NewClient(src).FetchSummary(context.Background())

	require.Equal(t, StateOperational, summary.State)
	require.Equal(t, int64(1), summary.Lag)
	require.Len(t, summary.Components, 2)
	require.Equal(t, "870000", summary.Components[0].HeightLabel())
}

func TestSummaryDegradedWhenIndexerLags(t *testing.T) {
	src := &fakeSource{health: marketapi.Health{Height: 100, SpacedHeight: 110}}
	summary := NewClient(src).FetchSummary(context.Background())

	require.Equal(t, StateDegraded, summary.State)
	require.Equal(t, "status.state.degraded", summary.StateKey)
	require.Equal(t, StateDegraded, summary.Components[0].Status)
}

func TestSummaryDownOnError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	summary := NewClient(src).FetchSummary(context.Background())

	require.Equal(t, StateDown, summary.State)
	require.Equal(t, "connection refused", summary.Error)
	require.Equal(t, "-", summary.Components[0].HeightLabel())
}

func TestSummaryIsCached(t *testing.T) {
	src := &fakeSource{health: marketapi.Health{Height: 1, SpacedHeight: 1}}
	client := NewClient(src)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	client.FetchSummary(context.Background())
	client.FetchSummary(context.Background())
	require.Equal(t, 1, src.calls)

	now = now.Add(time.Minute)
	client.FetchSummary(context.Background())
	require.Equal(t, 2, src.calls)
}
