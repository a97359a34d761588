package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeeStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to FeeStatus
		ok       bool
	}{
		{FeePendingSubmission, FeePendingApproval, true},
		{FeePendingApproval, FeeApproved, true},
		{FeePendingApproval, FeeRejected, true},
		{FeeRejected, FeePendingApproval, true},
		{FeeApproved, FeePaymentConfirmed, true},

		{FeePendingSubmission, FeeApproved, false},
		{FeePendingSubmission, FeePaymentConfirmed, false},
		{FeePendingApproval, FeePaymentConfirmed, false},
		{FeeApproved, FeeRejected, false},
		{FeeRejected, FeeApproved, false},
		{FeePaymentConfirmed, FeePendingApproval, false},
		{FeePaymentConfirmed, FeePaymentConfirmed, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestFeeStatusCapabilities(t *testing.T) {
	require.True(t, FeePendingSubmission.CanSubmit())
	require.True(t, FeeRejected.CanSubmit())
	require.False(t, FeePendingApproval.CanSubmit())
	require.False(t, FeeApproved.CanSubmit())

	require.True(t, FeePendingApproval.CanDecide())
	require.False(t, FeeRejected.CanDecide())

	require.True(t, FeeApproved.CanConfirmPayment())
	require.False(t, FeePendingApproval.CanConfirmPayment())
	require.False(t, FeePaymentConfirmed.CanConfirmPayment())
}

func TestFeeStatusValidation(t *testing.T) {
	for _, s := range []FeeStatus{FeePendingSubmission, FeePendingApproval, FeeApproved, FeeRejected, FeePaymentConfirmed} {
		require.True(t, s.IsValid(), string(s))
	}
	require.False(t, FeeStatus("Shipped").IsValid())
	require.False(t, FeeStatus("").IsValid())

	require.True(t, FeeApproved.IsDecision())
	require.True(t, FeeRejected.IsDecision())
	require.False(t, FeePaymentConfirmed.IsDecision())
}

func TestFeesTotal(t *testing.T) {
	require.Zero(t, Fees{}.Total())
	require.True(t, Fees{}.Empty())

	f := Fees{Duties: floatPtr(10), Storage: floatPtr(2.5)}
	require.False(t, f.Empty())
	require.InDelta(t, 12.5, f.Total(), 0.001)
}
