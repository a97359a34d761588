package inbound

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// stubRow feeds scanASN a fixed tuple in the asnColumns order. Nullable
// columns it does not set stay nil.
type stubRow struct {
	fees    []byte
	history []byte
	err     error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	*(dest[0].(*int64)) = 7
	*(dest[1].(*string)) = "ASN-000007"
	*(dest[2].(*string)) = "Acme Fasteners"
	*(dest[3].(*string)) = "DHL"
	*(dest[4].(*time.Time)) = now
	*(dest[6].(*Status)) = StatusArrived
	*(dest[7].(*workflow.FeeStatus)) = workflow.FeePendingApproval
	*(dest[8].(*[]byte)) = r.fees
	*(dest[9].(*[]byte)) = r.history
	*(dest[15].(*time.Time)) = now
	*(dest[16].(*time.Time)) = now
	return nil
}

func TestScanASNDecodesFeesAndHistory(t *testing.T) {
	row := stubRow{
		fees:    []byte(`{"duties":120,"shipping":45.5,"storage":null}`),
		history: []byte(`[{"status":"Pending Approval","from_status":"Pending Submission","actor_id":9,"at":"2026-08-01T10:00:00Z"}]`),
	}

	asn, err := scanASN(row)
	require.NoError(t, err)
	require.Equal(t, "ASN-000007", asn.RefNumber)
	require.Equal(t, workflow.FeePendingApproval, asn.FeeStatus)
	require.InDelta(t, 165.5, asn.Fees.Total(), 0.001)

	require.Len(t, asn.FeeHistory, 1)
	require.Equal(t, workflow.FeePendingApproval, asn.FeeHistory[0].Status)
	require.Equal(t, workflow.FeePendingSubmission, asn.FeeHistory[0].From)
	require.EqualValues(t, 9, asn.FeeHistory[0].ActorID)
}

func TestScanASNTranslatesMissingRow(t *testing.T) {
	_, err := scanASN(stubRow{err: pgx.ErrNoRows})
	require.ErrorIs(t, err, ErrNotFound)
}
