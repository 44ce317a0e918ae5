package pushsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitReturnsResult(t *testing.T) {
	got, err := await(context.Background(), time.Second, "quick op",
		func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestAwaitTimeoutIsFailureNotHang(t *testing.T) {
	start := time.Now()
	_, err := await(context.Background(), 100*time.Millisecond, "stuck op",
		func(ctx context.Context) (int, error) {
			select {} // never resolves
		})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "stuck op")
	assert.Less(t, elapsed, time.Second, "timeout must fire near its budget, not hang")
}

func TestAwaitDiscardsLosingBranch(t *testing.T) {
	finished := make(chan struct{})
	_, err := await(context.Background(), 50*time.Millisecond, "slow op",
		func(ctx context.Context) (int, error) {
			defer close(finished)
			time.Sleep(300 * time.Millisecond)
			return 1, nil
		})
	require.Error(t, err)

	// The slow branch keeps running but nobody waits for its result.
	select {
	case <-finished:
		t.Fatal("await returned after the slow branch finished")
	default:
	}
	<-finished // let it drain before the test exits
}

func TestAwaitHonorsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := await(ctx, time.Second, "cancelled op",
		func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	require.Error(t, err)
	assert.False(t, IsTimeout(err), "parent cancellation is not a timeout")
}
