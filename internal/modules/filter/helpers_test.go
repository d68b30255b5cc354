package filter

import (
	"testing"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// absent marks an absent cell in buildTable input.
const absent = "\x00"

// buildTable creates a table from ids and named text columns. The absent
// marker becomes an absent cell.
func buildTable(t *testing.T, ids []string, columns []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.New("eid", ids)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	for c, name := range columns {
		values := make([]table.Value, len(ids))
		for r := range ids {
			if rows[r][c] == absent {
				values[r] = table.Absent()
				continue
			}
			values[r] = table.Text(rows[r][c])
		}
		if err := tbl.AddColumn(name, values); err != nil {
			t.Fatalf("AddColumn(%s): %v", name, err)
		}
	}
	return tbl
}

func addFlag(t *testing.T, tbl *table.Table, name string, values ...bool) {
	t.Helper()
	col := make([]table.Value, len(values))
	for i, v := range values {
		col[i] = table.Bool(v)
	}
	if err := tbl.AddColumn(name, col); err != nil {
		t.Fatalf("AddColumn(%s): %v", name, err)
	}
}

func newCatalog(t *testing.T, ds *cohort.Dataset) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(ds)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func boolColumn(t *testing.T, tbl *table.Table, name string) []bool {
	t.Helper()
	col, ok := tbl.Column(name)
	if !ok {
		t.Fatalf("column %q not found in %v", name, tbl.Columns())
	}
	out := make([]bool, len(col))
	for i, v := range col {
		b, isBool := v.AsBool()
		if !isBool {
			t.Fatalf("%s[%d] = %v, not a boolean", name, i, v)
		}
		out[i] = b
	}
	return out
}
