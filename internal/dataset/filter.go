package dataset

// Filter narrows a canonical table the way the dashboard's sidebar
// does. Zero-valued criteria are inactive; a criterion only excludes
// rows when it is set, so rows missing a year are kept unless a year
// range is requested.
type Filter struct {
	Makes       []string
	YearMin     *int
	YearMax     *int
	EngineTypes []string
	Cylinders   []int
}

// IsZero reports whether no criterion is active.
func (f Filter) IsZero() bool {
	return len(f.Makes) == 0 && f.YearMin == nil && f.YearMax == nil &&
		len(f.EngineTypes) == 0 && len(f.Cylinders) == 0
}

// Apply returns the filtered view as a new table. Criteria referring
// to columns the table does not have exclude nothing.
func (f Filter) Apply(t *Table) *Table {
	if f.IsZero() {
		return t.Clone()
	}

	makes := toSet(f.Makes)
	engineTypes := toSet(f.EngineTypes)

	makeCol, hasMake := t.Column(ColMake)
	yearCol, hasYear := t.Column(ColYear)
	typeCol, hasType := t.Column(ColEngineType)
	cylCol, hasCyl := t.Column(ColNumberOfCylinders)

	return t.FilterRows(func(i int) bool {
		if len(makes) > 0 && hasMake {
			if _, ok := makes[makeCol.Text(i)]; !ok {
				return false
			}
		}
		if (f.YearMin != nil || f.YearMax != nil) && hasYear {
			y := yearCol.Float(i)
			if !y.Valid {
				return false
			}
			if f.YearMin != nil && y.Value < float64(*f.YearMin) {
				return false
			}
			if f.YearMax != nil && y.Value > float64(*f.YearMax) {
				return false
			}
		}
		if len(engineTypes) > 0 && hasType {
			if _, ok := engineTypes[typeCol.Text(i)]; !ok {
				return false
			}
		}
		if len(f.Cylinders) > 0 && hasCyl {
			v := cylCol.Float(i)
			if !v.Valid {
				return false
			}
			matched := false
			for _, c := range f.Cylinders {
				if v.Value == float64(c) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true
	})
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
