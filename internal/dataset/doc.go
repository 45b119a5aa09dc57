// Package dataset provides the column-oriented table the cleaning
// pipeline operates on. Numeric cells are represented by an explicit
// optional Float so that "missing" and "zero" stay distinct; NaN is
// never used as a sentinel. Tables are copied by stages, never
// mutated in place across package boundaries.
package dataset
