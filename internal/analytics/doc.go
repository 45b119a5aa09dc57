// Package analytics derives the dashboard aggregates from a cleaned
// dataset view: yearly trends, brand comparisons, leaderboards,
// cluster summaries and the engine DNA card. All functions treat the
// input table as read-only and skip missing values instead of
// imputing them.
package analytics
