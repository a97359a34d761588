package inventory

import (
	"fmt"
	"strings"
)

// MergeSerials unions incoming serials into the existing set. Matching is
// case-insensitive; original casing is preserved. Serials already present
// (or repeated within the incoming batch) are returned as duplicates and
// dropped rather than treated as an error.
func MergeSerials(existing, incoming []string) (merged, added, duplicates []string) {
	merged = make([]string, len(existing))
	copy(merged, existing)

	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[strings.ToLower(s)] = struct{}{}
	}

	for _, s := range incoming {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, s)
			continue
		}
		seen[key] = struct{}{}
		trimmed := strings.TrimSpace(s)
		merged = append(merged, trimmed)
		added = append(added, trimmed)
	}
	return merged, added, duplicates
}

// PickSerials removes the picked serials from the existing set. Every pick
// must match an existing serial (case-insensitive) or the whole operation
// fails, leaving the set untouched.
func PickSerials(existing, picks []string) ([]string, error) {
	remaining := make([]string, len(existing))
	copy(remaining, existing)

	for _, pick := range picks {
		key := strings.ToLower(strings.TrimSpace(pick))
		found := -1
		for i, s := range remaining {
			if strings.ToLower(s) == key {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%w: %s", ErrSerialNotFound, pick)
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return remaining, nil
}
