package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseHistoryNativeArray(t *testing.T) {
	raw := []byte(`[{"status":"Pending Approval","from_status":"Pending Submission","actor_id":4,"at":"2025-11-02T09:30:00Z"}]`)
	entries := ParseHistory(raw)
	require.Len(t, entries, 1)
	require.Equal(t, FeePendingApproval, entries[0].Status)
	require.Equal(t, FeePendingSubmission, entries[0].From)
	require.EqualValues(t, 4, entries[0].ActorID)
}

func TestParseHistoryDoubleEncodedString(t *testing.T) {
	raw := []byte(`"[{\"status\":\"Approved\",\"from_status\":\"Pending Approval\",\"actor_id\":2,\"at\":\"2025-11-03T10:00:00Z\"}]"`)
	entries := ParseHistory(raw)
	require.Len(t, entries, 1)
	require.Equal(t, FeeApproved, entries[0].Status)
}

func TestParseHistoryDegradesGracefully(t *testing.T) {
	require.Nil(t, ParseHistory(nil))
	require.Nil(t, ParseHistory([]byte("null")))
	require.Nil(t, ParseHistory([]byte("  ")))
	require.Nil(t, ParseHistory([]byte(`{"not":"an array"}`)))
	require.Nil(t, ParseHistory([]byte(`"not json at all"`)))
}

func TestEncodeHistoryNeverNull(t *testing.T) {
	require.Equal(t, []byte("[]"), EncodeHistory(nil))

	entries := []HistoryEntry{{
		Status:  FeePendingApproval,
		From:    FeePendingSubmission,
		ActorID: 7,
		At:      time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC),
	}}
	round := ParseHistory(EncodeHistory(entries))
	require.Equal(t, entries, round)
}
