package analytics

import (
	"sort"
	"strings"
	"time"
)

// Normalize collapses a free-text category value into its logical form.
// Storage holds uncontrolled casing ("Major", "MAJOR ", "major"); every
// read path goes through this single constructor so the dashboard shows
// one category per logical value.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CategoryCount is one entry of a breakdown chart.
type CategoryCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// FacetOption is one selectable value in the dashboard's filter dropdowns.
type FacetOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// groupRow is a raw group-by row as scanned from storage, pre-normalization.
type groupRow struct {
	Value string
	Count int64
}

// collapseCategories merges raw group-by rows whose values normalize to
// the same key, summing their counts. Keys that are empty after trimming
// are dropped entirely. Output is ordered by count descending (name as a
// tiebreaker) so charts render deterministically.
func collapseCategories(rows []groupRow) []CategoryCount {
	merged := make(map[string]int64)
	for _, row := range rows {
		key := Normalize(row.Value)
		if key == "" {
			continue
		}
		merged[key] += row.Count
	}

	out := make([]CategoryCount, 0, len(merged))
	for key, count := range merged {
		out = append(out, CategoryCount{ID: key, Name: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// normalizeFacet normalizes and dedupes distinct values, drops empties,
// and sorts lexicographically.
func normalizeFacet(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := Normalize(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// facetOptions wraps normalized facet values as {id,name} options.
func facetOptions(values []string) []FacetOption {
	out := make([]FacetOption, 0, len(values))
	for _, v := range values {
		out = append(out, FacetOption{ID: v, Name: v})
	}
	return out
}

// VehicleCategory pairs a vehicles-involved substring token with the
// display label shown on the chart.
type VehicleCategory struct {
	Token string
	Label string
}

// VehicleCategories is the fixed, ordered vehicle-type breakdown. A record
// whose vehicles-involved text contains several tokens counts toward each
// of them. The order is part of the response contract.
var VehicleCategories = []VehicleCategory{
	{Token: "SINGLE MOTORCYCLE", Label: "SINGLE MOTORCYCLE"},
	{Token: "TRICYCLE", Label: "TRICYCLE"},
	{Token: "PUV", Label: "PUV"},
	{Token: "PRIVATE", Label: "PRIVATE VEHICLE"},
	{Token: "TRUCK", Label: "TRUCK"},
	{Token: "JEEP", Label: "JEEPNEY"},
	{Token: "BICYCLE", Label: "BICYCLE"},
}

// yearRange derives the selectable year list: the inclusive descending
// sequence from the max-date year down to the min-date year. An empty
// store yields a single-element range holding the current year.
func yearRange(minDate, maxDate *time.Time, now time.Time) []int {
	minYear := now.Year()
	maxYear := now.Year()
	if minDate != nil {
		minYear = minDate.Year()
	}
	if maxDate != nil {
		maxYear = maxDate.Year()
	}

	years := make([]int, 0, maxYear-minYear+1)
	for y := maxYear; y >= minYear; y-- {
		years = append(years, y)
	}
	return years
}
