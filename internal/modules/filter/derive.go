package filter

import (
	"context"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// scanMode controls how a row scan treats absent cells.
type scanMode int

const (
	// skipAbsent ignores absent cells and keeps scanning the row.
	skipAbsent scanMode = iota
	// stopAtAbsent ends the row scan at the first absent cell.
	stopAtAbsent
)

// deriveFlags evaluates every pattern against the given columns, row by row.
//
// A flag is true when at least one scanned text cell starts with a match of
// its pattern. Once true it stays true for the row. Cells that are not text
// never match. Every flag left unset when the scan of a row ends is false.
func deriveFlags(ctx context.Context, t *table.Table, columns []string, patterns catalog.Patterns, mode scanMode) (*table.Flags, error) {
	flags := table.NewFlags(patterns.Names(), t.Len())

	cells := make([][]table.Value, len(columns))
	for i, name := range columns {
		cells[i], _ = t.Column(name)
	}

	ids := t.IDs()
	set := make([]bool, len(patterns))
	for row := 0; row < t.Len(); row++ {
		if err := checkCancel(ctx, row); err != nil {
			return nil, err
		}

		for i := range set {
			set[i] = false
		}
		for _, col := range cells {
			v := col[row]
			if v.IsAbsent() {
				if mode == stopAtAbsent {
					break
				}
				continue
			}
			s, ok := v.AsText()
			if !ok {
				continue
			}
			for i, p := range patterns {
				if !set[i] && p.MatchPrefix(s) {
					set[i] = true
				}
			}
		}

		flags.IDs = append(flags.IDs, ids[row])
		for i := range patterns {
			flags.Values[i] = append(flags.Values[i], set[i])
		}
	}

	if err := flags.Verify(); err != nil {
		return nil, err
	}
	return flags, nil
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
