package analytics

import (
	"errors"
	"strings"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// ErrNoRepresentative reports that no row in the view is identifiable
// enough to front the DNA card.
var ErrNoRepresentative = errors.New("no representative engine in view")

// dnaColumns are the fields a fully described engine carries. The
// representative row is the first one complete in all of them.
var dnaColumns = []string{
	dataset.ColMake,
	dataset.ColModel,
	dataset.ColTrim,
	dataset.ColEngineType,
	dataset.ColCylinderLayout,
	dataset.ColNumberOfCylinders,
	dataset.ColEngineHP,
	dataset.ColDisplacementL,
	dataset.ColAcceleration,
	dataset.ColMixedFuel,
}

// Card picks the view's representative engine and builds its DNA
// card. Preference goes to the first row with every DNA field
// populated, then to the first row that at least names a make and
// model.
func (a *Analyzer) Card(view *dataset.Table) (*domain.EngineCard, error) {
	row, ok := representativeRow(view)
	if !ok {
		return nil, ErrNoRepresentative
	}

	card := &domain.EngineCard{
		Make:           strings.TrimSpace(view.Text(dataset.ColMake, row)),
		Model:          strings.TrimSpace(view.Text(dataset.ColModel, row)),
		Trim:           strings.TrimSpace(view.Text(dataset.ColTrim, row)),
		EngineType:     strings.TrimSpace(view.Text(dataset.ColEngineType, row)),
		CylinderLayout: strings.TrimSpace(view.Text(dataset.ColCylinderLayout, row)),
		Cylinders:      view.Float(dataset.ColNumberOfCylinders, row).Ptr(),
		HP:             view.Float(dataset.ColEngineHP, row).Ptr(),
		DisplacementL:  view.Float(dataset.ColDisplacementL, row).Ptr(),
		AccelSec:       view.Float(dataset.ColAcceleration, row).Ptr(),
		FuelL100KM:     view.Float(dataset.ColMixedFuel, row).Ptr(),
	}
	card.Layout = ClassifyLayout(card.CylinderLayout, view.Float(dataset.ColNumberOfCylinders, row))
	card.ImageQueries = imageQueries(card.Make, card.Model, card.Trim)
	return card, nil
}

func representativeRow(view *dataset.Table) (int, bool) {
	for row := 0; row < view.NumRows(); row++ {
		if rowComplete(view, row) {
			return row, true
		}
	}
	for row := 0; row < view.NumRows(); row++ {
		if strings.TrimSpace(view.Text(dataset.ColMake, row)) != "" &&
			strings.TrimSpace(view.Text(dataset.ColModel, row)) != "" {
			return row, true
		}
	}
	return 0, false
}

func rowComplete(view *dataset.Table, row int) bool {
	for _, name := range dnaColumns {
		col, ok := view.Column(name)
		if !ok {
			return false
		}
		if col.Kind() == dataset.KindFloat {
			if !col.Float(row).Valid {
				return false
			}
			continue
		}
		if strings.TrimSpace(col.Text(row)) == "" {
			return false
		}
	}
	return true
}

// ClassifyLayout maps a free-text cylinder layout onto the schematic
// vocabulary. The cylinder count falls back to four and is clamped to
// the drawable range of 2 to 12.
func ClassifyLayout(layout string, cylinders dataset.Float) domain.EngineLayout {
	kind := domain.EngineLayoutInline
	lowered := strings.ToLower(layout)
	switch {
	case strings.Contains(lowered, "v"):
		kind = domain.EngineLayoutV
	case strings.Contains(lowered, "boxer"), strings.Contains(lowered, "flat"):
		kind = domain.EngineLayoutBoxer
	}

	count := 4
	if cylinders.Valid {
		count = int(cylinders.Value)
	}
	if count < 2 {
		count = 2
	}
	if count > 12 {
		count = 12
	}
	return domain.EngineLayout{Kind: kind, Cylinders: count}
}

// imageQueries builds the search phrases for the card photo, most
// specific first.
func imageQueries(makeName, model, trim string) []string {
	var queries []string
	if makeName == "" || model == "" {
		return queries
	}
	if trim != "" {
		queries = append(queries, strings.Join([]string{makeName, model, trim, "car"}, " "))
	}
	queries = append(queries, strings.Join([]string{makeName, model, "car"}, " "))
	return queries
}
