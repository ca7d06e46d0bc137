package analytics

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/mbda/trafficboard/internal/testhelpers"
)

func TestService_Overview_EmptyStore(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	overview, err := svc.Overview(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if overview.Totals.Incidents != 0 {
		t.Errorf("Totals.Incidents = %d, want 0", overview.Totals.Incidents)
	}
	if overview.Totals.Today != 0 {
		t.Errorf("Totals.Today = %d, want 0", overview.Totals.Today)
	}

	currentYear := time.Now().UTC().Year()
	if len(overview.Filters.Years) != 1 || overview.Filters.Years[0] != currentYear {
		t.Errorf("Filters.Years = %v, want [%d]", overview.Filters.Years, currentYear)
	}

	if len(overview.Classification) != 0 {
		t.Errorf("Classification = %v, want empty", overview.Classification)
	}
	if len(overview.Municipality) != 0 {
		t.Errorf("Municipality = %v, want empty", overview.Municipality)
	}
	if len(overview.Trends) != 0 {
		t.Errorf("Trends = %v, want empty", overview.Trends)
	}
	if len(overview.Points) != 0 {
		t.Errorf("Points = %v, want empty", overview.Points)
	}

	// Vehicle entries are always present in fixed order, all zero
	if len(overview.Vehicles) != len(VehicleCategories) {
		t.Fatalf("Vehicles length = %d, want %d", len(overview.Vehicles), len(VehicleCategories))
	}
	for i, v := range overview.Vehicles {
		if v.Count != 0 {
			t.Errorf("Vehicles[%d].Count = %d, want 0", i, v.Count)
		}
		if v.Name != VehicleCategories[i].Label {
			t.Errorf("Vehicles[%d].Name = %q, want %q", i, v.Name, VehicleCategories[i].Label)
		}
	}
}

func TestService_Overview_NormalizationCollapsesCasing(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithClassification("Major").Create(t, db)
	testhelpers.NewIncident().WithClassification(" MAJOR ").Create(t, db)
	testhelpers.NewIncident().WithClassification("major").Create(t, db)
	testhelpers.NewIncident().WithClassification("minor").Create(t, db)
	testhelpers.NewIncident().WithClassification("   ").Create(t, db)

	overview, err := svc.Overview(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if overview.Totals.Incidents != 5 {
		t.Errorf("Totals.Incidents = %d, want 5", overview.Totals.Incidents)
	}

	// Casing variants collapse into one category; blank is dropped
	if len(overview.Classification) != 2 {
		t.Fatalf("Classification has %d categories, want 2: %v", len(overview.Classification), overview.Classification)
	}

	// Sum of breakdown counts equals the total minus blank-classification rows
	var sum int64
	for _, c := range overview.Classification {
		sum += c.Count
	}
	if sum != 4 {
		t.Errorf("sum of classification counts = %d, want 4", sum)
	}

	if len(overview.Filters.Classifications) != 2 {
		t.Errorf("Filters.Classifications = %v, want 2 entries", overview.Filters.Classifications)
	}
}

func TestService_Overview_YearEqualsExplicitRange(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithDate(time.Date(2023, time.January, 5, 10, 0, 0, 0, time.UTC)).Create(t, db)
	testhelpers.NewIncident().WithDate(time.Date(2023, time.December, 31, 22, 0, 0, 0, time.UTC)).Create(t, db)
	testhelpers.NewIncident().WithDate(time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC)).Create(t, db)

	byYear, err := ParseFilter(url.Values{"year": {"2023"}})
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	byRange, err := ParseFilter(url.Values{
		"startDate": {"2023-01-01"},
		"endDate":   {"2023-12-31"},
	})
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}

	yearOverview, err := svc.Overview(context.Background(), byYear)
	if err != nil {
		t.Fatalf("Overview(year) error = %v", err)
	}
	rangeOverview, err := svc.Overview(context.Background(), byRange)
	if err != nil {
		t.Fatalf("Overview(range) error = %v", err)
	}

	if yearOverview.Totals.Incidents != 2 {
		t.Errorf("year filter total = %d, want 2", yearOverview.Totals.Incidents)
	}
	if yearOverview.Totals.Incidents != rangeOverview.Totals.Incidents {
		t.Errorf("year total %d != range total %d", yearOverview.Totals.Incidents, rangeOverview.Totals.Incidents)
	}
}

func TestService_Overview_MonthlyTrends(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithDate(time.Date(2024, time.March, 2, 8, 0, 0, 0, time.UTC)).Create(t, db)
	testhelpers.NewIncident().WithDate(time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)).Create(t, db)
	testhelpers.NewIncident().WithDate(time.Date(2024, time.January, 20, 8, 0, 0, 0, time.UTC)).Create(t, db)
	testhelpers.NewIncident().WithDate(time.Date(2023, time.June, 1, 8, 0, 0, 0, time.UTC)).Create(t, db)

	f, err := ParseFilter(url.Values{"year": {"2024"}})
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}

	overview, err := svc.Overview(context.Background(), f)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if len(overview.Trends) != 2 {
		t.Fatalf("Trends = %v, want 2 months", overview.Trends)
	}
	if overview.Trends[0].Month != "2024-01" || overview.Trends[0].Count != 2 {
		t.Errorf("Trends[0] = %+v, want 2024-01 with count 2", overview.Trends[0])
	}
	if overview.Trends[1].Month != "2024-03" || overview.Trends[1].Count != 1 {
		t.Errorf("Trends[1] = %+v, want 2024-03 with count 1", overview.Trends[1])
	}

	// Ascending, no duplicate labels
	seen := map[string]bool{}
	last := ""
	for _, m := range overview.Trends {
		if seen[m.Month] {
			t.Errorf("duplicate month label %q", m.Month)
		}
		seen[m.Month] = true
		if m.Month <= last {
			t.Errorf("months not ascending: %q after %q", m.Month, last)
		}
		last = m.Month
	}
}

func TestService_Overview_VehicleCounts(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	// One record may count toward multiple tokens
	testhelpers.NewIncident().WithVehicles("SINGLE MOTORCYCLE VS TRICYCLE").Create(t, db)
	testhelpers.NewIncident().WithVehicles("private vehicle").Create(t, db)
	testhelpers.NewIncident().WithVehicles("Jeepney").Create(t, db)

	overview, err := svc.Overview(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	counts := make(map[string]int64)
	for _, v := range overview.Vehicles {
		counts[v.Name] = v.Count
	}

	if counts["SINGLE MOTORCYCLE"] != 1 {
		t.Errorf("SINGLE MOTORCYCLE = %d, want 1", counts["SINGLE MOTORCYCLE"])
	}
	if counts["TRICYCLE"] != 1 {
		t.Errorf("TRICYCLE = %d, want 1", counts["TRICYCLE"])
	}
	if counts["PRIVATE VEHICLE"] != 1 {
		t.Errorf("PRIVATE VEHICLE = %d, want 1 (case-insensitive)", counts["PRIVATE VEHICLE"])
	}
	if counts["JEEPNEY"] != 1 {
		t.Errorf("JEEPNEY = %d, want 1 (matched via JEEP token)", counts["JEEPNEY"])
	}
	if counts["TRUCK"] != 0 {
		t.Errorf("TRUCK = %d, want 0", counts["TRUCK"])
	}
}

func TestService_Overview_TodayReplacesDateRange(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithDate(time.Now().UTC()).Create(t, db)
	testhelpers.NewIncident().WithDate(time.Date(2020, time.May, 1, 8, 0, 0, 0, time.UTC)).Create(t, db)

	f, err := ParseFilter(url.Values{"year": {"2020"}})
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}

	overview, err := svc.Overview(context.Background(), f)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if overview.Totals.Incidents != 1 {
		t.Errorf("Totals.Incidents = %d, want 1 (2020 only)", overview.Totals.Incidents)
	}
	// Today's count swaps in fresh day bounds instead of the 2020 range
	if overview.Totals.Today != 1 {
		t.Errorf("Totals.Today = %d, want 1", overview.Totals.Today)
	}
}

func TestService_Overview_PointsMostRecentFirst(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	older := testhelpers.NewIncident().
		WithDate(time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)).
		WithCoordinates(14.68, 120.54).
		WithMunicipality("Orani").
		Create(t, db)
	newer := testhelpers.NewIncident().
		WithDate(time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)).
		WithCoordinates(14.43, 120.48).
		WithMunicipality("Balanga").
		Create(t, db)

	overview, err := svc.Overview(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if len(overview.Points) != 2 {
		t.Fatalf("Points = %v, want 2 entries", overview.Points)
	}
	if overview.Points[0].ID != newer.ID {
		t.Errorf("Points[0].ID = %d, want most recent %d", overview.Points[0].ID, newer.ID)
	}
	if overview.Points[1].ID != older.ID {
		t.Errorf("Points[1].ID = %d, want %d", overview.Points[1].ID, older.ID)
	}
	if overview.Points[0].Municipality.Name != "Balanga" {
		t.Errorf("Points[0].Municipality.Name = %q, want Balanga", overview.Points[0].Municipality.Name)
	}
	if overview.Points[0].Latitude == nil || *overview.Points[0].Latitude != 14.43 {
		t.Errorf("Points[0].Latitude = %v, want 14.43", overview.Points[0].Latitude)
	}
}

func TestService_Overview_CaseInsensitiveDimensionFilter(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithMunicipality("Balanga").Create(t, db)
	testhelpers.NewIncident().WithMunicipality("BALANGA").Create(t, db)
	testhelpers.NewIncident().WithMunicipality("Orani").Create(t, db)

	overview, err := svc.Overview(context.Background(), Filter{Municipality: "balanga"})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if overview.Totals.Incidents != 2 {
		t.Errorf("Totals.Incidents = %d, want 2 (case-insensitive match)", overview.Totals.Incidents)
	}

	// Facet lists stay unfiltered
	if len(overview.Filters.Municipalities) != 2 {
		t.Errorf("Filters.Municipalities = %v, want both municipalities", overview.Filters.Municipalities)
	}
}

func TestService_ListRecords(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	for day := 1; day <= 5; day++ {
		testhelpers.NewIncident().
			WithDate(time.Date(2024, time.April, day, 8, 0, 0, 0, time.UTC)).
			WithMunicipality("Hermosa").
			Create(t, db)
	}

	pageResult, err := svc.ListRecords(context.Background(), Filter{}, 2, 2)
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}

	if pageResult.Total != 5 {
		t.Errorf("Total = %d, want 5", pageResult.Total)
	}
	if pageResult.Page != 2 || pageResult.PageSize != 2 {
		t.Errorf("page/pageSize = %d/%d, want 2/2", pageResult.Page, pageResult.PageSize)
	}
	if len(pageResult.Rows) != 2 {
		t.Fatalf("Rows length = %d, want 2", len(pageResult.Rows))
	}

	// date DESC: page 2 holds days 3 and 2
	if pageResult.Rows[0].Date.Day() != 3 || pageResult.Rows[1].Date.Day() != 2 {
		t.Errorf("page 2 rows dated %d, %d, want 3, 2",
			pageResult.Rows[0].Date.Day(), pageResult.Rows[1].Date.Day())
	}

	if len(pageResult.Facets.Municipalities) != 1 || pageResult.Facets.Municipalities[0] != "HERMOSA" {
		t.Errorf("Facets.Municipalities = %v, want [HERMOSA]", pageResult.Facets.Municipalities)
	}
}

func TestService_ListRecords_FreeTextSearch(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithLocation("Roman Superhighway km 152").Create(t, db)
	testhelpers.NewIncident().WithLocation("Diversion Road").WithVehicles("DUMP TRUCK").Create(t, db)
	testhelpers.NewIncident().WithLocation("Capitol Drive").WithType("Stalled Truck").Create(t, db)

	pageResult, err := svc.ListRecords(context.Background(), Filter{Query: "truck"}, 1, 20)
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}

	// Matches vehicles_involved on one row and type on another
	if pageResult.Total != 2 {
		t.Errorf("Total = %d, want 2 for q=truck", pageResult.Total)
	}
}

func TestService_ExportRecords_AppliesFilter(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewService(db, time.UTC)

	testhelpers.NewIncident().WithClassification("MAJOR").Create(t, db)
	testhelpers.NewIncident().WithClassification("MINOR").Create(t, db)

	rows, err := svc.ExportRecords(context.Background(), Filter{Classification: "major"})
	if err != nil {
		t.Fatalf("ExportRecords() error = %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("export returned %d rows, want 1", len(rows))
	}
	if rows[0].Classification != "MAJOR" {
		t.Errorf("exported row classification = %q, want MAJOR", rows[0].Classification)
	}
}
