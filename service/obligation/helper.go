package obligation

import (
	"sort"

	"lending/pkg/lending"
)

// sortedIDs fixed write order keeps concurrent writers from deadlocking
func sortedIDs(reserves lending.Reserves) []string {
	ids := make([]string, 0, len(reserves))
	for id := range reserves {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}
