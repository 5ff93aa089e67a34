package litescan

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/dashjay/litescan/pkg/record"
	"github.com/dashjay/litescan/pkg/utils"
)

// Execute parses and runs one shell command, writing its output to w.
func (db *DB) Execute(command string, w io.Writer) error {
	query, err := ParseQuery(command)
	if err != nil {
		return err
	}
	catalog, err := db.Catalog()
	if err != nil {
		return err
	}

	switch query.Kind {
	case QueryDBInfo:
		fmt.Fprintf(w, "database page size: %d\n", db.PageSize())
		fmt.Fprintf(w, "number of tables: %d\n", len(userTables(catalog)))
		return nil
	case QueryTables:
		names := lo.Map(userTables(catalog), func(e SchemaEntry, _ int) string { return e.Name })
		fmt.Fprintf(w, "%s\n", strings.Join(names, " "))
		return nil
	case QueryIndexes:
		names := lo.Map(userIndexes(catalog), func(e SchemaEntry, _ int) string { return e.Name })
		fmt.Fprintf(w, "%s\n", strings.Join(names, " "))
		return nil
	case QuerySchema:
		for _, entry := range catalog {
			if entry.SQL != "" {
				fmt.Fprintf(w, "%s\n", entry.SQL)
			}
		}
		return nil
	case QueryCount:
		entry, err := lookupTable(catalog, query.Table)
		if err != nil {
			return err
		}
		n, err := db.countRows(entry.RootPage)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\n", n)
		return nil
	case QuerySelect:
		return db.execSelect(catalog, query, w)
	default:
		return fmt.Errorf("%w query kind %d", ErrUnsupported, query.Kind)
	}
}

func (db *DB) execSelect(catalog []SchemaEntry, query Query, w io.Writer) error {
	entry, err := lookupTable(catalog, query.Table)
	if err != nil {
		return err
	}
	columns, err := parseCreateColumns(entry.SQL)
	if err != nil {
		return err
	}

	resolve := func(name string) (int, error) {
		idx := utils.IndexBy(columns, func(c string) bool { return strings.EqualFold(c, name) })
		if idx == -1 {
			return 0, fmt.Errorf("%w: %s", ErrNoSuchColumn, name)
		}
		return idx, nil
	}

	var selected []int
	for _, name := range query.Columns {
		if name == "*" {
			for i := range columns {
				selected = append(selected, i)
			}
			continue
		}
		idx, err := resolve(name)
		if err != nil {
			return err
		}
		selected = append(selected, idx)
	}

	filterIdx := -1
	if query.Filter != nil {
		if filterIdx, err = resolve(query.Filter.Column); err != nil {
			return err
		}
	}

	emit := func(rowid int64, payload []byte, overflowed bool, filtered bool) error {
		if overflowed {
			return fmt.Errorf("%w: row %d spills to an overflow chain", ErrUnsupported, rowid)
		}
		db.metrics.IncCounterOne(dbCounterRecordDecode)
		rec, err := record.Decode(payload)
		if err != nil {
			return err
		}
		if rec.Overflow {
			return fmt.Errorf("%w: row %d spills to an overflow chain", ErrUnsupported, rowid)
		}
		if filtered && renderColumn(rec, rowid, filterIdx) != string(query.Filter.Value) {
			return nil
		}
		fields := lo.Map(selected, func(idx int, _ int) string {
			return renderColumn(rec, rowid, idx)
		})
		fmt.Fprintf(w, "%s\n", strings.Join(fields, "|"))
		return nil
	}

	if query.Filter != nil {
		if index, ok := findIndex(catalog, entry.Name, query.Filter.Column); ok {
			rowids, err := db.scanIndex(index.RootPage, query.Filter.Value)
			if err != nil {
				return err
			}
			// ascending rowid order, and better page locality on the fetches
			slices.Sort(rowids)
			for _, rowid := range rowids {
				payload, overflowed, found, err := db.findRow(entry.RootPage, rowid)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("index %s names rowid %d missing from table %s",
						index.Name, rowid, entry.Name)
				}
				// equality is already guaranteed by the index walk
				if err := emit(rowid, payload, overflowed, false); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return db.scanTable(entry.RootPage, func(rowid int64, payload []byte, overflowed bool) error {
		return emit(rowid, payload, overflowed, query.Filter != nil)
	})
}

// renderColumn renders one column of a decoded row. Column 0 aliases the
// rowid: its stored value is typically NULL, so the cell's rowid is
// substituted at emission time.
func renderColumn(rec record.Record, rowid int64, idx int) string {
	if idx == 0 {
		return strconv.FormatInt(rowid, 10)
	}
	if idx >= len(rec.Vals) {
		// columns added after the row was written read as NULL
		return ""
	}
	return renderValue(rec.Vals[idx])
}

func renderValue(v record.Value) string {
	switch v.Type {
	case record.TypeNull:
		return ""
	case record.TypeInt64:
		return strconv.FormatInt(v.I64, 10)
	case record.TypeFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	default:
		return string(v.Str)
	}
}
