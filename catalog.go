package litescan

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/dashjay/litescan/pkg/constants"
	"github.com/dashjay/litescan/pkg/record"
)

// SchemaEntry is one row of the schema table rooted at page 1.
type SchemaEntry struct {
	Type     string
	Name     string
	TblName  string
	RootPage uint32
	SQL      string
}

// Catalog materializes the schema table with an ordinary table scan of
// page 1. It is rebuilt once per query.
func (db *DB) Catalog() ([]SchemaEntry, error) {
	var entries []SchemaEntry
	err := db.scanTable(1, func(_ int64, payload []byte, overflowed bool) error {
		if overflowed {
			return fmt.Errorf("%w: schema record spills to an overflow chain", ErrUnsupported)
		}
		db.metrics.IncCounterOne(dbCounterRecordDecode)
		rec, err := record.Decode(payload)
		if err != nil {
			return fmt.Errorf("schema record: %w", err)
		}
		if rec.Overflow {
			return fmt.Errorf("%w: schema record spills to an overflow chain", ErrUnsupported)
		}
		if len(rec.Vals) < constants.SchemaColumnCount {
			return fmt.Errorf("%w: schema record has %d columns", record.ErrMalformedRecord, len(rec.Vals))
		}
		entries = append(entries, SchemaEntry{
			Type:     string(rec.Vals[constants.SchemaColType].Str),
			Name:     string(rec.Vals[constants.SchemaColName].Str),
			TblName:  string(rec.Vals[constants.SchemaColTblName].Str),
			RootPage: uint32(rec.Vals[constants.SchemaColRootPage].I64),
			SQL:      string(rec.Vals[constants.SchemaColSQL].Str),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// userTables filters the catalog down to user-visible tables, keeping
// catalog order.
func userTables(entries []SchemaEntry) []SchemaEntry {
	return lo.Filter(entries, func(e SchemaEntry, _ int) bool {
		return e.Type == "table" && !strings.HasPrefix(e.Name, "sqlite_")
	})
}

func userIndexes(entries []SchemaEntry) []SchemaEntry {
	return lo.Filter(entries, func(e SchemaEntry, _ int) bool {
		return e.Type == "index"
	})
}

// lookupTable resolves a table by name, case-insensitively.
func lookupTable(entries []SchemaEntry, name string) (SchemaEntry, error) {
	for _, e := range entries {
		if e.Type == "table" && strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return SchemaEntry{}, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
}

// findIndex looks for an index on the given table whose first indexed
// column matches column.
func findIndex(entries []SchemaEntry, table, column string) (SchemaEntry, bool) {
	for _, e := range entries {
		if e.Type != "index" || !strings.EqualFold(e.TblName, table) {
			continue
		}
		cols, err := parseCreateColumns(e.SQL)
		if err != nil || len(cols) == 0 {
			continue
		}
		if strings.EqualFold(cols[0], column) {
			return e, true
		}
	}
	return SchemaEntry{}, false
}

// parseCreateColumns extracts the column names from a CREATE TABLE or
// CREATE INDEX statement: everything between the first '(' and the final
// ')', split on top-level commas, first whitespace token of each piece.
// Table-constraint pieces (PRIMARY KEY(...), UNIQUE(...), ...) are skipped.
func parseCreateColumns(sql string) ([]string, error) {
	open := strings.Index(sql, "(")
	closing := strings.LastIndex(sql, ")")
	if open < 0 || closing < open {
		return nil, fmt.Errorf("%w: cannot parse creation statement %q", ErrUnsupported, sql)
	}
	var columns []string
	for _, piece := range splitTopLevel(sql[open+1 : closing]) {
		fields := strings.Fields(piece)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "PRIMARY", "CONSTRAINT", "UNIQUE", "CHECK", "FOREIGN":
			continue
		}
		columns = append(columns, fields[0])
	}
	return columns, nil
}

// splitTopLevel splits on commas outside any parentheses, so typed columns
// like `price decimal(8,2)` stay in one piece.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
