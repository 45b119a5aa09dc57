// Package exporter renders dataset views and analytics results to
// downloadable formats: streaming CSV for the canonical table and an
// Excel workbook for the dashboard aggregates.
package exporter
