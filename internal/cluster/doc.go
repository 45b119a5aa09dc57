// Package cluster segments engines by performance character. It
// standardizes the four clustering features over the rows that carry
// all of them, runs a seeded k-means and projects the same matrix to
// two principal components for plotting. Results are deterministic
// across invocations on the same input.
package cluster
