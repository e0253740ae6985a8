package app

import (
	"slices"
	"strings"

	"playreviews/internal/domain"
)

// ResolveSort maps a requested sort name onto what the upstream supports.
// RATING falls back to NEWEST; HELPFUL and MOST_RELEVANT try HELPFUL, then
// MOST_RELEVANT, then NEWEST. Unknown names resolve to NEWEST.
func ResolveSort(name string, supported []domain.Sort) domain.Sort {
	pick := func(chain ...domain.Sort) domain.Sort {
		for _, s := range chain {
			if slices.Contains(supported, s) {
				return s
			}
		}
		return domain.SortNewest
	}

	switch domain.Sort(strings.ToUpper(strings.TrimSpace(name))) {
	case domain.SortRating:
		return pick(domain.SortRating)
	case domain.SortHelpful, domain.SortMostRelevant:
		return pick(domain.SortHelpful, domain.SortMostRelevant)
	default:
		return domain.SortNewest
	}
}
