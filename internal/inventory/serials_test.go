package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSerialsUnionsNewSerials(t *testing.T) {
	merged, added, dups := MergeSerials([]string{"SN-1", "SN-2"}, []string{"SN-3", "SN-4"})
	require.Equal(t, []string{"SN-1", "SN-2", "SN-3", "SN-4"}, merged)
	require.Equal(t, []string{"SN-3", "SN-4"}, added)
	require.Empty(t, dups)
}

func TestMergeSerialsDropsDuplicates(t *testing.T) {
	merged, added, dups := MergeSerials([]string{"SN-1"}, []string{"sn-1", "SN-2", "SN-2"})
	require.Equal(t, []string{"SN-1", "SN-2"}, merged)
	require.Equal(t, []string{"SN-2"}, added)
	require.Equal(t, []string{"sn-1", "SN-2"}, dups)
}

func TestMergeSerialsTrimsAndSkipsEmpty(t *testing.T) {
	merged, added, dups := MergeSerials(nil, []string{" SN-9 ", "", "   "})
	require.Equal(t, []string{"SN-9"}, merged)
	require.Equal(t, []string{"SN-9"}, added)
	require.Empty(t, dups)
}

func TestPickSerialsRemovesMatches(t *testing.T) {
	remaining, err := PickSerials([]string{"SN-1", "SN-2", "SN-3"}, []string{"sn-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"SN-1", "SN-3"}, remaining)
}

func TestPickSerialsFailsAtomically(t *testing.T) {
	existing := []string{"SN-1", "SN-2"}
	_, err := PickSerials(existing, []string{"SN-1", "SN-404"})
	require.ErrorIs(t, err, ErrSerialNotFound)
	// The input set is never mutated on failure.
	require.Equal(t, []string{"SN-1", "SN-2"}, existing)
}

func TestPickSerialsCannotPickSameSerialTwice(t *testing.T) {
	_, err := PickSerials([]string{"SN-1"}, []string{"SN-1", "SN-1"})
	require.ErrorIs(t, err, ErrSerialNotFound)
}
