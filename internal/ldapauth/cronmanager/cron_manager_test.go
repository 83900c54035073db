package cronmanager

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJobs(t *testing.T) {
	var runs atomic.Int32
	cm := NewCronManager(JobRegistry{
		"probe":    {Func: func() { runs.Add(1) }, Schedule: "*/5 * * * *"},
		"disabled": {Func: func() {}, Schedule: ""},
	})

	require.NoError(t, cm.LoadJobs())
	assert.Equal(t, []string{"probe"}, cm.Scheduled())

	// reload replaces the schedule instead of duplicating it
	require.NoError(t, cm.LoadJobs())
	assert.Equal(t, []string{"probe"}, cm.Scheduled())

	require.NoError(t, cm.RunNow("probe"))
	assert.Equal(t, int32(1), runs.Load())
	assert.Error(t, cm.RunNow("missing"))

	cm.RemoveJob("probe")
	assert.Empty(t, cm.Scheduled())

	cm.Start()
	cm.Stop()
}

func TestLoadJobsBadSchedule(t *testing.T) {
	cm := NewCronManager(JobRegistry{
		"good": {Func: func() {}, Schedule: "@hourly"},
		"bad":  {Func: func() {}, Schedule: "not a schedule"},
	})

	err := cm.LoadJobs()
	assert.ErrorContains(t, err, "bad")
	assert.Equal(t, []string{"good"}, cm.Scheduled())
}
