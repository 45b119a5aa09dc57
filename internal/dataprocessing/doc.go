// Package dataprocessing implements the engine dataset cleaning
// pipeline: loading the raw delimited table, normalizing column
// names, coercing designated columns to numbers, clipping outliers to
// physical bounds and deriving engine features. Stages are pure table
// transformations composed in strict sequence; malformed cells
// degrade to missing values and never abort a run.
package dataprocessing
