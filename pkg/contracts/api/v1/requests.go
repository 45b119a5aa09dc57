// Package api contains API contract definitions for the engine atlas.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// FilterParams represents the dashboard's sidebar filters. Every
// criterion is optional; an absent value leaves the criterion
// inactive. Repeated query keys and comma-separated lists are both
// accepted.
type FilterParams struct {
	Makes       []string `json:"makes,omitempty" query:"makes" validate:"omitempty,max=100,dive,min=1,max=64"`
	YearMin     *int     `json:"year_min,omitempty" query:"year_min" validate:"omitempty,min=1900,max=2100"`
	YearMax     *int     `json:"year_max,omitempty" query:"year_max" validate:"omitempty,min=1900,max=2100"`
	EngineTypes []string `json:"engine_types,omitempty" query:"engine_types" validate:"omitempty,max=50,dive,min=1,max=64"`
	Cylinders   []int    `json:"cylinders,omitempty" query:"cylinders" validate:"omitempty,max=50,dive,min=1,max=36"`
}

// IsZero reports whether no criterion is active.
func (p FilterParams) IsZero() bool {
	return len(p.Makes) == 0 && p.YearMin == nil && p.YearMax == nil &&
		len(p.EngineTypes) == 0 && len(p.Cylinders) == 0
}

// ClusterRequest represents a clustering run request. A zero K asks
// for the server's configured default.
type ClusterRequest struct {
	K int `json:"k" query:"k" validate:"omitempty,min=2,max=10"`
	FilterParams
}

// RecordsRequest represents a paginated record listing request.
type RecordsRequest struct {
	Limit  int `json:"limit" query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int `json:"offset" query:"offset" validate:"omitempty,min=0"`
	FilterParams
}

// CardRequest represents an engine DNA card request. A signature pins
// the card to one engine family instead of the view's representative.
type CardRequest struct {
	Signature string `json:"signature,omitempty" query:"signature" validate:"omitempty,min=1,max=200"`
	FilterParams
}

// ImageRequest represents an engine image lookup request.
type ImageRequest struct {
	Title string `json:"title" query:"title" validate:"required,min=2,max=200"`
}

// ExportRequest represents an export request. Columns select and
// order the CSV output; K sizes the workbook's cluster sheet.
type ExportRequest struct {
	Columns  []string `json:"columns,omitempty" query:"columns" validate:"omitempty,max=64,dive,column_name"`
	Filename string   `json:"filename,omitempty" query:"filename" validate:"omitempty,filename"`
	K        int      `json:"k,omitempty" query:"k" validate:"omitempty,min=2,max=10"`
	FilterParams
}

// ReloadRequest represents a dataset reload request. Force bypasses
// the fingerprint cache and re-cleans the file unconditionally.
type ReloadRequest struct {
	Force bool `json:"force" query:"force"`
}

// FilterParamsFromQuery parses the shared filter criteria from query
// parameters. Unparseable numbers are an error naming the parameter.
func FilterParamsFromQuery(values url.Values) (FilterParams, error) {
	var p FilterParams
	p.Makes = queryList(values, "makes")
	p.EngineTypes = queryList(values, "engine_types")

	var err error
	if p.YearMin, err = queryIntPtr(values, "year_min"); err != nil {
		return FilterParams{}, err
	}
	if p.YearMax, err = queryIntPtr(values, "year_max"); err != nil {
		return FilterParams{}, err
	}
	for _, raw := range queryList(values, "cylinders") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return FilterParams{}, fmt.Errorf("cylinders: %q is not an integer", raw)
		}
		p.Cylinders = append(p.Cylinders, n)
	}
	return p, nil
}

// ClusterRequestFromQuery parses a clustering request from query
// parameters.
func ClusterRequestFromQuery(values url.Values) (ClusterRequest, error) {
	filters, err := FilterParamsFromQuery(values)
	if err != nil {
		return ClusterRequest{}, err
	}
	k, err := queryInt(values, "k", 0)
	if err != nil {
		return ClusterRequest{}, err
	}
	return ClusterRequest{K: k, FilterParams: filters}, nil
}

// RecordsRequestFromQuery parses a record listing request from query
// parameters.
func RecordsRequestFromQuery(values url.Values) (RecordsRequest, error) {
	filters, err := FilterParamsFromQuery(values)
	if err != nil {
		return RecordsRequest{}, err
	}
	limit, err := queryInt(values, "limit", 0)
	if err != nil {
		return RecordsRequest{}, err
	}
	offset, err := queryInt(values, "offset", 0)
	if err != nil {
		return RecordsRequest{}, err
	}
	return RecordsRequest{Limit: limit, Offset: offset, FilterParams: filters}, nil
}

// ExportRequestFromQuery parses an export request from query
// parameters.
func ExportRequestFromQuery(values url.Values) (ExportRequest, error) {
	filters, err := FilterParamsFromQuery(values)
	if err != nil {
		return ExportRequest{}, err
	}
	k, err := queryInt(values, "k", 0)
	if err != nil {
		return ExportRequest{}, err
	}
	return ExportRequest{
		Columns:      queryList(values, "columns"),
		Filename:     values.Get("filename"),
		K:            k,
		FilterParams: filters,
	}, nil
}

// queryList collects every value of key, splitting comma-separated
// entries and dropping empties.
func queryList(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryInt(values url.Values, key string, def int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func queryIntPtr(values url.Values, key string) (*int, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return &n, nil
}
