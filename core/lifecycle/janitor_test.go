package lifecycle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPruner struct {
	calls     atomic.Int32
	retention atomic.Int64
}

func (c *countingPruner) Prune(olderThan time.Duration) int {
	c.calls.Add(1)
	c.retention.Store(int64(olderThan))
	return 1
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	_, err := NewJanitor(&countingPruner{}, "every now and then", time.Hour, nil)
	assert.ErrorContains(t, err, "register janitor")
}

func TestJanitorRunNow(t *testing.T) {
	p := &countingPruner{}
	j, err := NewJanitor(p, "0 */5 * * * *", 30*time.Minute, nil)
	require.NoError(t, err)
	j.RunNow()
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, int64(30*time.Minute), p.retention.Load())
	require.Len(t, j.Cron.Entries(), 1)
}

func TestJanitorRunsOnSchedule(t *testing.T) {
	p := &countingPruner{}
	j, err := NewJanitor(p, "* * * * * *", time.Minute, nil)
	require.NoError(t, err)
	j.Start()
	defer j.Stop()
	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
