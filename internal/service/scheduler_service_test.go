package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/logging"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	spec, err = buildDailySpec(" 0:05 ")
	require.NoError(t, err)
	assert.Equal(t, "0 5 0 * * *", spec)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildIntervalSpec(t *testing.T) {
	spec, err := buildIntervalSpec(6 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "@every 21600s", spec)

	spec, err = buildIntervalSpec(200 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", spec)

	_, err = buildIntervalSpec(0)
	assert.Error(t, err)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())

	daily, err := s.ScheduleDaily("08:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(time.Hour, func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	_, err = s.ScheduleDaily("late", func() {})
	assert.Error(t, err)

	s.Remove(daily)
	assert.Equal(t, 1, s.Len())

	s.Start()
	s.Stop()
}
