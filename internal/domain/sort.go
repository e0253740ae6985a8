package domain

// Sort is an upstream ordering. Names match the connector configuration values.
type Sort string

const (
	SortNewest       Sort = "NEWEST"
	SortRating       Sort = "RATING"
	SortHelpful      Sort = "HELPFUL"
	SortMostRelevant Sort = "MOST_RELEVANT"
)

func (s Sort) String() string { return string(s) }
