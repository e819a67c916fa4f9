package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMarshalsExpectedFields(t *testing.T) {
	ev := Event{Type: TypeProgress, JobID: "job-1", URL: "https://example.com", Message: "fetched"}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "progress", decoded["type"])
	assert.Equal(t, "job-1", decoded["job_id"])
	assert.NotContains(t, decoded, "error")
}

func TestEventTimestampIsZeroUntilSet(t *testing.T) {
	ev := Event{Type: TypeCompleted, JobID: "job-2"}
	assert.True(t, ev.Timestamp.IsZero())

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEventTypesCoverAllRoutingKeys(t *testing.T) {
	types := []string{TypeURLDiscovered, TypeProgress, TypeCompleted, TypeError}
	assert.Len(t, types, 4)
	assert.Equal(t, "url_discovered", TypeURLDiscovered)
	assert.Equal(t, "error", TypeError)
}
