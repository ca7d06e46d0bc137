package analytics

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// sentinelAll means "no filter on this dimension" for municipality,
// classification and year parameters.
const sentinelAll = "all"

// dateOnlyLayout is the format the dashboard's date pickers send.
const dateOnlyLayout = "2006-01-02"

// Filter is the normalized form of the dashboard's query parameters.
// A nil bound or empty string means the dimension is unfiltered.
type Filter struct {
	Start          *time.Time
	End            *time.Time
	Municipality   string
	Classification string
	Query          string
}

// ParseFilter decodes optional filter query parameters into a Filter.
//
// A year other than "all" overrides startDate/endDate and expands to the
// full inclusive range of that calendar year. A bare endDate is extended
// to 23:59:59 so the whole end day is included. Unparseable dates are a
// caller error, never a silent default.
func ParseFilter(params url.Values) (Filter, error) {
	var f Filter

	year := params.Get("year")
	startDate := params.Get("startDate")
	endDate := params.Get("endDate")

	switch {
	case year != "" && year != sentinelAll:
		y, err := strconv.Atoi(year)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid year %q", year)
		}
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(y, time.December, 31, 23, 59, 59, 0, time.UTC)
		f.Start = &start
		f.End = &end

	case startDate != "" || endDate != "":
		if startDate != "" {
			t, _, err := parseDate(startDate)
			if err != nil {
				return Filter{}, err
			}
			f.Start = &t
		}
		if endDate != "" {
			t, dateOnly, err := parseDate(endDate)
			if err != nil {
				return Filter{}, err
			}
			if dateOnly {
				t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
			}
			f.End = &t
		}
	}

	if v := params.Get("municipality"); v != "" && v != sentinelAll {
		f.Municipality = v
	}
	if v := params.Get("classification"); v != "" && v != sentinelAll {
		f.Classification = v
	}
	f.Query = strings.TrimSpace(params.Get("q"))

	return f, nil
}

// parseDate accepts a bare date or an RFC 3339 timestamp. The second
// return value reports whether the input carried no time component.
func parseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
}

// Scope returns the filter as a GORM scope. Every query in the analytics
// fan-out applies this same scope so all aggregates are computed over an
// identical record set.
func (f Filter) Scope() func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f.Start != nil {
			tx = tx.Where("date >= ?", *f.Start)
		}
		if f.End != nil {
			tx = tx.Where("date <= ?", *f.End)
		}
		if f.Municipality != "" {
			tx = tx.Where("LOWER(municipality) = LOWER(?)", f.Municipality)
		}
		if f.Classification != "" {
			tx = tx.Where("LOWER(classification) = LOWER(?)", f.Classification)
		}
		if f.Query != "" {
			like := "%" + strings.ToLower(f.Query) + "%"
			tx = tx.Where(
				"LOWER(location) LIKE ? OR LOWER(vehicles_involved) LIKE ? OR LOWER(type) LIKE ?",
				like, like, like,
			)
		}
		return tx
	}
}
