// Package tabulate renders flat records as an aligned text table with a
// caller-chosen column subset and optional multi-key sort.
package tabulate

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// columnGap separates adjacent columns.
const columnGap = "  "

// placeholder renders for a record that has no value for a column.
const placeholder = "-"

// Options control one Format call.
type Options struct {
	// Columns is the ordered set of record keys to emit.
	Columns []string
	// Valid is the set of keys Columns and Sort may draw from. Empty
	// means any key is acceptable.
	Valid []string
	// Sort lists sort keys in priority order. A "-" prefix on a key
	// requests descending order for that key. The sort is stable: records
	// equal under every key keep their input order.
	Sort []string
	// NoHeader suppresses the header row.
	NoHeader bool
}

// Format writes the table for records to w. An empty record list produces
// no output at all, not even a header.
func Format(w io.Writer, records []map[string]string, opts Options) error {
	if err := validateFields(opts); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if len(opts.Sort) > 0 {
		sortRecords(records, opts.Sort)
	}

	widths := make([]int, len(opts.Columns))
	for i, col := range opts.Columns {
		if !opts.NoHeader {
			widths[i] = len(col)
		}
		for _, rec := range records {
			if v, ok := rec[col]; ok && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	if !opts.NoHeader {
		row := make([]string, len(opts.Columns))
		for i, col := range opts.Columns {
			row[i] = strings.ToUpper(col)
		}
		writeRow(&b, row, widths)
	}
	for _, rec := range records {
		row := make([]string, len(opts.Columns))
		for i, col := range opts.Columns {
			v, ok := rec[col]
			if !ok || v == "" {
				v = placeholder
			}
			row[i] = v
		}
		writeRow(&b, row, widths)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func validateFields(opts Options) error {
	if len(opts.Valid) == 0 {
		return nil
	}
	valid := make(map[string]bool, len(opts.Valid))
	for _, f := range opts.Valid {
		valid[f] = true
	}
	for _, col := range opts.Columns {
		if !valid[col] {
			return fmt.Errorf("invalid field: %q", col)
		}
	}
	for _, key := range opts.Sort {
		if !valid[strings.TrimPrefix(key, "-")] {
			return fmt.Errorf("invalid sort field: %q", strings.TrimPrefix(key, "-"))
		}
	}
	return nil
}

func sortRecords(records []map[string]string, keys []string) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			desc := strings.HasPrefix(key, "-")
			field := strings.TrimPrefix(key, "-")
			a, b := records[i][field], records[j][field]
			if a == b {
				continue
			}
			if desc {
				return a > b
			}
			return a < b
		}
		return false
	})
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	last := len(cells) - 1
	for i, cell := range cells {
		if i == last {
			// No trailing padding on the final column.
			b.WriteString(cell)
			break
		}
		b.WriteString(cell)
		if pad := widths[i] - len(cell); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(columnGap)
	}
	b.WriteByte('\n')
}
