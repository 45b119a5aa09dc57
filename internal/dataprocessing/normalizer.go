package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"engineatlas/internal/dataset"
)

var (
	reSeparators  = regexp.MustCompile(`[\\/]+`)
	reBrackets    = regexp.MustCompile(`[()\[\]]`)
	reSpaceRuns   = regexp.MustCompile(`[\s\-]+`)
	reUnderscores = regexp.MustCompile(`__+`)
)

// headerRepairs fixes known bad headers after canonicalization: a
// misspelling of "model" and a truncated acceleration column. A
// repair applies only when its target name is still free, so a raw
// variant never coexists with its canonical counterpart.
var headerRepairs = []struct {
	from, to string
}{
	{from: "modle", to: "model"},
	{from: "acceleration_0_100_km_h_", to: "acceleration_0_100_km_h_s"},
}

// NormalizeName rewrites one raw header into canonical snake_case:
// trim, lowercase, slash runs to underscores, brackets removed,
// whitespace and hyphen runs to underscores, underscore runs
// collapsed. Applying it twice yields the same name.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = reSeparators.ReplaceAllString(name, "_")
	name = reBrackets.ReplaceAllString(name, "")
	name = reSpaceRuns.ReplaceAllString(name, "_")
	name = reUnderscores.ReplaceAllString(name, "_")
	return name
}

// Normalizer is the column name canonicalization stage.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer returns the stage.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("stage", "normalize"))}
}

// ID implements pipeline.Stage.
func (n *Normalizer) ID() string { return "normalize" }

// Name implements pipeline.Stage.
func (n *Normalizer) Name() string { return "Column Normalizer" }

// Run renames every column on a copy of the table. Collisions after
// canonicalization are deduplicated with numeric suffixes.
func (n *Normalizer) Run(ctx context.Context, tbl *dataset.Table) (*dataset.Table, error) {
	out := tbl.Clone()

	names := out.Names()
	renamed := 0
	for i, name := range names {
		canonical := NormalizeName(name)
		if canonical != name {
			renamed++
		}
		names[i] = canonical
	}
	names = uniqueNames(names)

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	for _, repair := range headerRepairs {
		i, present := index[repair.from]
		if !present {
			continue
		}
		if _, taken := index[repair.to]; taken {
			continue
		}
		names[i] = repair.to
		delete(index, repair.from)
		index[repair.to] = i
		renamed++
	}

	if err := out.SetNames(names); err != nil {
		return nil, fmt.Errorf("failed to apply canonical names: %w", err)
	}

	n.logger.DebugContext(ctx, "column names normalized",
		slog.Int("columns", len(names)),
		slog.Int("renamed", renamed))
	return out, nil
}

// uniqueNames suffixes later duplicates with _2, _3, … keeping the
// first occurrence untouched.
func uniqueNames(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if _, dup := seen[name]; !dup {
			seen[name] = 1
			out[i] = name
			continue
		}
		for {
			seen[name]++
			candidate := fmt.Sprintf("%s_%d", name, seen[name])
			if _, taken := seen[candidate]; !taken {
				seen[candidate] = 1
				out[i] = candidate
				break
			}
		}
	}
	return out
}
