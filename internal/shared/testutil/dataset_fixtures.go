package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"engineatlas/internal/dataset"
)

// SampleRawCSV is a small engine dataset with the messy headers the
// cleaning pipeline repairs: the misspelled model column, unit-suffixed
// measures, European decimal commas and assorted missing markers.
const SampleRawCSV = `Make,Modle,Year from,Year to,Engine HP,Acceleration 0 - 100 km/h (),Mixed fuel consumption per 100 km (l),Number of cylinders,CO2 emissions (g/km),Engine type,Cylinder layout,Cylinder bore and stroke cycle (mm),Capacity cm3
Toyota,Corolla,2018,2020,132,10.9,6.1,4,139,Gasoline,Inline,80.5 x 78.5,1598
Toyota,Supra,2019,2020,340,4.3,7.7,6,177,Gasoline,Inline,82.0 x 85.9,2998
BMW,320i,2015,2019,184,7.3,5.9,4,134,Gasoline,Inline,82.0 x 94.6,1998
BMW,M5,2018,2020,600,3.4,10.6,8,246,Gasoline,V-type,89.0 x 88.3,4395
Lada,Niva,1977,2020,83,17.0,"9,9",4,234,Gasoline,Inline,82.0 x 80.0,1690
Ferrari,488,2015,2019,670,3.0,11.4,8,260,Gasoline,V-type,n/a,3902
`

// WriteSampleDataset writes SampleRawCSV into a fresh temp directory and
// returns the file path.
func WriteSampleDataset(t *testing.T) string {
	t.Helper()
	return WriteCSV(t, t.TempDir(), "cars_engines.csv", SampleRawCSV)
}

// WriteCSV writes CSV content under dir and returns the file path.
func WriteCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv fixture: %v", err)
	}
	return path
}

// CleanTable returns a small table already in the canonical cleaned
// schema, for tests that sit above the pipeline. The Lada row carries a
// missing horsepower value so option handling stays visible.
func CleanTable(t *testing.T) *dataset.Table {
	t.Helper()

	tbl := dataset.NewTable()
	mustAdd := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("build fixture table: %v", err)
		}
	}

	floats := func(vs ...float64) []dataset.Float {
		out := make([]dataset.Float, len(vs))
		for i, v := range vs {
			out[i] = dataset.FloatFrom(v)
		}
		return out
	}

	mustAdd(tbl.AddTextColumn(dataset.ColMake, []string{"Toyota", "Toyota", "BMW", "BMW", "Lada", "Ferrari"}))
	mustAdd(tbl.AddTextColumn(dataset.ColModel, []string{"Corolla", "Supra", "320i", "M5", "Niva", "488"}))
	mustAdd(tbl.AddFloatColumn(dataset.ColYearFrom, floats(2018, 2019, 2015, 2018, 1977, 2015)))
	mustAdd(tbl.AddFloatColumn(dataset.ColYear, floats(2018, 2019, 2015, 2018, 1977, 2015)))

	hp := floats(132, 340, 184, 600, 0, 670)
	hp[4] = dataset.Missing()
	mustAdd(tbl.AddFloatColumn(dataset.ColEngineHP, hp))

	mustAdd(tbl.AddFloatColumn(dataset.ColAcceleration, floats(10.9, 4.3, 7.3, 3.4, 17.0, 3.0)))
	mustAdd(tbl.AddFloatColumn(dataset.ColMixedFuel, floats(6.1, 7.7, 5.9, 10.6, 9.9, 11.4)))
	mustAdd(tbl.AddFloatColumn(dataset.ColNumberOfCylinders, floats(4, 6, 4, 8, 4, 8)))
	mustAdd(tbl.AddFloatColumn(dataset.ColCO2, floats(139, 177, 134, 246, 234, 260)))
	mustAdd(tbl.AddFloatColumn(dataset.ColDisplacementL, floats(1.6, 3.0, 2.0, 4.4, 1.69, 3.9)))
	mustAdd(tbl.AddFloatColumn(dataset.ColHPPerLiter, floats(82.5, 113.3, 92.0, 136.4, 49.1, 171.8)))
	mustAdd(tbl.AddTextColumn(dataset.ColEngineSignature, []string{
		"Toyota Gasoline Inline 4 1.6L",
		"Toyota Gasoline Inline 6 3.0L",
		"BMW Gasoline Inline 4 2.0L",
		"BMW Gasoline V-type 8 4.4L",
		"Lada Gasoline Inline 4 1.69L",
		"Ferrari Gasoline V-type 8 3.9L",
	}))
	mustAdd(tbl.AddFloatColumn(dataset.ColBalancedScore, floats(0.1, 0.6, 0.3, 0.4, -0.8, 0.5)))

	return tbl
}
