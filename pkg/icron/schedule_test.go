package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	ref := time.Date(2026, 3, 2, 12, 10, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 50*time.Minute, info.TimeUntilNext)
	assert.Equal(t, 10*time.Minute, info.TimeSinceLast)
	assert.Equal(t, "50 minutes from now", info.Describe(ref))
}

func TestGetTriggerInfo_SparseSchedule(t *testing.T) {
	ref := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 3 1 * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC), info.Next)
}

func TestNextRuns(t *testing.T) {
	ref := time.Date(2026, 3, 2, 12, 10, 0, 0, time.UTC)

	runs, err := NextRuns("30 * * * *", ref, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC), runs[0])
	assert.Equal(t, time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC), runs[2])

	_, err = NextRuns("nope", ref, 1)
	assert.Error(t, err)
}
