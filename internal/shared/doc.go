// Package shared holds cross-cutting helpers that belong to no single
// domain package.
//
// The testutil subpackage provides the in-memory slog recorder and the
// raw dataset fixtures used by tests across the codebase. Nothing in
// here may import other internal packages except internal/dataset, so
// any package can depend on it without cycles.
package shared
