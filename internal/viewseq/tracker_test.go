package viewseq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerLatestWins(t *testing.T) {
	t.Parallel()

	tr, err := New(16)
	require.NoError(t, err)

	first := tr.Issue("sess-a", "grid")
	second := tr.Issue("sess-a", "grid")
	require.NotEqual(t, first, second)
	require.False(t, tr.IsLatest("sess-a", "grid", first))
	require.True(t, tr.IsLatest("sess-a", "grid", second))
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	t.Parallel()

	tr, err := New(16)
	require.NoError(t, err)

	grid := tr.Issue("sess-a", "grid")
	_ = tr.Issue("sess-a", "post-validate")
	_ = tr.Issue("sess-b", "grid")
	require.True(t, tr.IsLatest("sess-a", "grid", grid))
	require.Equal(t, 3, tr.Len())
}

func TestTrackerEvictedKeyDelivers(t *testing.T) {
	t.Parallel()

	tr, err := New(1)
	require.NoError(t, err)

	old := tr.Issue("sess-a", "grid")
	_ = tr.Issue("sess-b", "grid")
	require.True(t, tr.IsLatest("sess-a", "grid", old))
}

func TestTrackerConcurrentIssue(t *testing.T) {
	t.Parallel()

	tr, err := New(0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Issue("sess", "grid")
		}()
	}
	wg.Wait()
	require.True(t, tr.IsLatest("sess", "grid", Token(50)))
}
