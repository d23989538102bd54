// Package report renders the result set as CSV.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ghasexport/internal/record"

	"github.com/m-mizutani/goerr/v2"
)

// Column is a selectable report column.
type Column string

const (
	ColumnOwner          Column = "owner"
	ColumnName           Column = "name"
	ColumnCodeScanning   Column = "code_scanning"
	ColumnDependabot     Column = "dependabot"
	ColumnSecretScanning Column = "secret_scanning"
	ColumnError          Column = "error"
)

// DefaultHeaders is the column list used when none is configured.
const DefaultHeaders = "owner,name,code_scanning,dependabot,secret_scanning"

// AllColumns lists every known column.
func AllColumns() []Column {
	return []Column{
		ColumnOwner,
		ColumnName,
		ColumnCodeScanning,
		ColumnDependabot,
		ColumnSecretScanning,
		ColumnError,
	}
}

// Value renders the column for one record. Pending counts are empty cells.
func (c Column) Value(r record.Record) string {
	switch c {
	case ColumnOwner:
		return r.Owner
	case ColumnName:
		return r.Name
	case ColumnCodeScanning:
		return countCell(r.CodeScanning)
	case ColumnDependabot:
		return countCell(r.Dependabot)
	case ColumnSecretScanning:
		return countCell(r.SecretScanning)
	case ColumnError:
		return r.Error
	default:
		return ""
	}
}

func countCell(f record.FeatureResult) string {
	v := f.Value()
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ParseColumns maps names onto known columns in the given order. Names that do
// not match a column are returned separately and left out of the selection.
func ParseColumns(names []string) (cols []Column, unknown []string) {
	known := make(map[string]Column, len(AllColumns()))
	for _, c := range AllColumns() {
		known[string(c)] = c
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if c, ok := known[n]; ok {
			cols = append(cols, c)
			continue
		}
		unknown = append(unknown, n)
	}
	return cols, unknown
}

// Write emits a header row followed by one row per record, in the order given.
func Write(w io.Writer, cols []Column, records []record.Record) error {
	if len(cols) == 0 {
		return goerr.New("no report columns selected")
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = string(c)
	}
	if err := cw.Write(header); err != nil {
		return goerr.Wrap(err, "failed to write report header")
	}

	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			row[i] = c.Value(r)
		}
		if err := cw.Write(row); err != nil {
			return goerr.Wrap(err, "failed to write report row", goerr.V("repo", r.Ref().FullName()))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush report")
	}
	return nil
}

// WriteFile writes the report to path, creating parent directories.
func WriteFile(path string, cols []Column, records []record.Record) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "failed to create report directory", goerr.V("dir", dir))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create report file", goerr.V("path", path))
	}
	if err := Write(f, cols, records); err != nil {
		_ = f.Close()
		return goerr.Wrap(err, "failed to write report file", goerr.V("path", path))
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close report file", goerr.V("path", path))
	}
	return nil
}
