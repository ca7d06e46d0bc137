package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mbda/trafficboard/internal/database"
)

const (
	// maxMapPoints bounds the geo sample returned for map rendering.
	maxMapPoints = 500

	// maxExportRows bounds CSV exports.
	maxExportRows = 5000
)

// Service computes dashboard aggregates and record pages over the
// incident store. Every request is stateless; results derive entirely
// from the query parameters and the store's current contents.
type Service struct {
	db  *gorm.DB
	loc *time.Location
}

// NewService creates an analytics service. loc is the business time zone
// used for "today" bounds; nil means UTC.
func NewService(db *gorm.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, loc: loc}
}

// Totals holds the headline counters.
type Totals struct {
	Incidents int64 `json:"incidents"`
	Today     int64 `json:"today"`
}

// FacetFilters populates the dashboard's filter selectors. The lists are
// unfiltered on purpose: changing the current filter must not shrink the
// selectable values.
type FacetFilters struct {
	Municipalities  []FacetOption `json:"municipalities"`
	Classifications []FacetOption `json:"classifications"`
	Years           []int         `json:"years"`
}

// MonthCount is one point of the monthly trend series.
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// NameRef nests a category name for the presentation layer.
type NameRef struct {
	Name string `json:"name"`
}

// MapPoint is one geo-located incident projected for map rendering.
type MapPoint struct {
	ID             uint       `json:"id"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	Municipality   NameRef    `json:"municipality"`
	Classification NameRef    `json:"classification"`
	OccurredAt     *time.Time `json:"occurredAt"`
}

// Overview is the full analytics document consumed by the dashboard.
type Overview struct {
	Totals         Totals          `json:"totals"`
	Filters        FacetFilters    `json:"filters"`
	Classification []CategoryCount `json:"classification"`
	Municipality   []CategoryCount `json:"municipality"`
	Vehicles       []CategoryCount `json:"vehicles"`
	Trends         []MonthCount    `json:"trends"`
	Points         []MapPoint      `json:"points"`
}

// RecordFacets are the normalized distinct values shown next to the table.
type RecordFacets struct {
	Municipalities  []string `json:"municipalities"`
	Classifications []string `json:"classifications"`
}

// RecordPage is one page of the records table.
type RecordPage struct {
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
	Rows     []database.Incident `json:"rows"`
	Facets   RecordFacets        `json:"facets"`
}

// incidents starts a query against the incident table.
func (s *Service) incidents(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&database.Incident{})
}

// todayBounds returns the inclusive bounds of the current calendar day in
// the configured business time zone.
func (s *Service) todayBounds() (time.Time, time.Time) {
	now := time.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

// Overview computes the analytics document for one filter. All aggregates
// are dispatched concurrently under the same predicate and joined before
// the response is composed; the first failure cancels the rest and fails
// the whole request - no partial result ever leaks out.
func (s *Service) Overview(ctx context.Context, f Filter) (*Overview, error) {
	g, ctx := errgroup.WithContext(ctx)

	var (
		total, today       int64
		classRows, muniRows []groupRow
		matchDates         []time.Time
		pointRows          []database.Incident
		rawMunicipalities  []string
		rawClassifications []string
		vehicleTotals      = make([]int64, len(VehicleCategories))
		minDate, maxDate   *time.Time
	)

	g.Go(func() error {
		return s.incidents(ctx).Scopes(f.Scope()).Count(&total).Error
	})

	g.Go(func() error {
		// Always "today": fresh day bounds replace the predicate's own
		// date range while the other dimensions still apply.
		dayStart, dayEnd := s.todayBounds()
		tf := f
		tf.Start, tf.End = &dayStart, &dayEnd
		return s.incidents(ctx).Scopes(tf.Scope()).Count(&today).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Scopes(f.Scope()).
			Select("classification AS value, COUNT(*) AS count").
			Group("classification").
			Scan(&classRows).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Scopes(f.Scope()).
			Select("municipality AS value, COUNT(*) AS count").
			Group("municipality").
			Scan(&muniRows).Error
	})

	g.Go(func() error {
		// Matching occurrence dates, bucketed per month in monthlyTrends.
		return s.incidents(ctx).Scopes(f.Scope()).
			Where("date IS NOT NULL").
			Order("date ASC").
			Pluck("date", &matchDates).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Scopes(f.Scope()).
			Select("id", "latitude", "longitude", "municipality", "classification", "date").
			Order("date DESC").
			Limit(maxMapPoints).
			Find(&pointRows).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Distinct().Pluck("municipality", &rawMunicipalities).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Distinct().Pluck("classification", &rawClassifications).Error
	})

	for i, vc := range VehicleCategories {
		g.Go(func() error {
			return s.incidents(ctx).Scopes(f.Scope()).
				Where("LOWER(vehicles_involved) LIKE ?", "%"+strings.ToLower(vc.Token)+"%").
				Count(&vehicleTotals[i]).Error
		})
	}

	g.Go(func() error {
		var err error
		minDate, maxDate, err = s.dateBounds(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	vehicles := make([]CategoryCount, len(VehicleCategories))
	for i, vc := range VehicleCategories {
		vehicles[i] = CategoryCount{ID: vc.Label, Name: vc.Label, Count: vehicleTotals[i]}
	}

	return &Overview{
		Totals: Totals{Incidents: total, Today: today},
		Filters: FacetFilters{
			Municipalities:  facetOptions(normalizeFacet(rawMunicipalities)),
			Classifications: facetOptions(normalizeFacet(rawClassifications)),
			Years:           yearRange(minDate, maxDate, time.Now().In(s.loc)),
		},
		Classification: collapseCategories(classRows),
		Municipality:   collapseCategories(muniRows),
		Vehicles:       vehicles,
		Trends:         monthlyTrends(matchDates),
		Points:         mapPoints(pointRows),
	}, nil
}

// ListRecords returns one page of matching records plus table facets.
func (s *Service) ListRecords(ctx context.Context, f Filter, page, pageSize int) (*RecordPage, error) {
	g, ctx := errgroup.WithContext(ctx)

	var (
		total              int64
		rows               = make([]database.Incident, 0, pageSize)
		rawMunicipalities  []string
		rawClassifications []string
	)

	g.Go(func() error {
		return s.incidents(ctx).Scopes(f.Scope()).Count(&total).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Scopes(f.Scope()).
			Order("date DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&rows).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Distinct().Pluck("municipality", &rawMunicipalities).Error
	})

	g.Go(func() error {
		return s.incidents(ctx).Distinct().Pluck("classification", &rawClassifications).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &RecordPage{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Rows:     rows,
		Facets: RecordFacets{
			Municipalities:  normalizeFacet(rawMunicipalities),
			Classifications: normalizeFacet(rawClassifications),
		},
	}, nil
}

// ExportRecords returns up to maxExportRows matching records, most recent
// first, for CSV export.
func (s *Service) ExportRecords(ctx context.Context, f Filter) ([]database.Incident, error) {
	rows := make([]database.Incident, 0)
	err := s.incidents(ctx).Scopes(f.Scope()).
		Order("date DESC").
		Limit(maxExportRows).
		Find(&rows).Error
	return rows, err
}

// dateBounds returns the minimum and maximum occurrence date across the
// entire unfiltered store, or nils when no dated record exists.
func (s *Service) dateBounds(ctx context.Context) (*time.Time, *time.Time, error) {
	var earliest, latest []time.Time

	err := s.incidents(ctx).Where("date IS NOT NULL").
		Order("date ASC").Limit(1).
		Pluck("date", &earliest).Error
	if err != nil {
		return nil, nil, err
	}

	err = s.incidents(ctx).Where("date IS NOT NULL").
		Order("date DESC").Limit(1).
		Pluck("date", &latest).Error
	if err != nil {
		return nil, nil, err
	}

	if len(earliest) == 0 || len(latest) == 0 {
		return nil, nil, nil
	}
	return &earliest[0], &latest[0], nil
}

// monthlyTrends buckets occurrence dates per calendar month, ascending,
// with "YYYY-MM" labels.
func monthlyTrends(dates []time.Time) []MonthCount {
	counts := make(map[string]int64)
	for _, d := range dates {
		counts[d.UTC().Format("2006-01")]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthCount, 0, len(months))
	for _, m := range months {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out
}

// mapPoints projects sampled rows into the nested shape the map expects.
func mapPoints(rows []database.Incident) []MapPoint {
	out := make([]MapPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, MapPoint{
			ID:             r.ID,
			Latitude:       r.Latitude,
			Longitude:      r.Longitude,
			Municipality:   NameRef{Name: r.Municipality},
			Classification: NameRef{Name: r.Classification},
			OccurredAt:     r.Date,
		})
	}
	return out
}
