package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestItemAged(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	fresh := Item{EntryDate: now.AddDate(0, -6, 0)}
	require.False(t, fresh.Aged(now))

	old := Item{EntryDate: now.AddDate(-1, 0, -1)}
	require.True(t, old.Aged(now))

	unknown := Item{}
	require.False(t, unknown.Aged(now))
}

func TestItemLowStock(t *testing.T) {
	require.True(t, Item{Quantity: 5, ReorderPoint: 5}.LowStock())
	require.True(t, Item{Quantity: 0, ReorderPoint: 3}.LowStock())
	require.False(t, Item{Quantity: 12, ReorderPoint: 5}.LowStock())
}
