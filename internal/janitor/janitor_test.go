package janitor

import (
	"context"
	"testing"
	"time"

	"lifeplanner-api/internal/metrics"
	"lifeplanner-api/internal/occurrence"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type countingPurger struct{ n int }

func (c *countingPurger) Purge() int { return c.n }

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every now and then", time.UTC, &countingPurger{}, nil)
	require.Error(t, err)
}

func TestPurgeLocks_CountsMetric(t *testing.T) {
	j, err := New("@every 1h", time.UTC, &countingPurger{n: 3}, nil)
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.SeriesLocksPurged)
	require.Equal(t, 3, j.PurgeLocks())
	require.Equal(t, before+3, testutil.ToFloat64(metrics.SeriesLocksPurged))
}

func TestPurgeLocks_SeriesLocks(t *testing.T) {
	locks := occurrence.NewSeriesLocks(time.Nanosecond)
	locks.Lock("series:a")()
	locks.Lock("series:b")()
	time.Sleep(time.Millisecond)

	j, err := New("@every 1h", nil, locks, nil)
	require.NoError(t, err)
	require.Equal(t, 2, j.PurgeLocks())
	require.Zero(t, locks.Len())
}

func TestStartStop(t *testing.T) {
	j, err := New("@every 1h", time.UTC, &countingPurger{}, nil)
	require.NoError(t, err)
	j.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
}
