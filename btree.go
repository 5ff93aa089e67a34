package litescan

import (
	"bytes"
	"fmt"

	"github.com/dashjay/litescan/pkg/constants"
	"github.com/dashjay/litescan/pkg/page"
	"github.com/dashjay/litescan/pkg/record"
)

/*
Cell shapes
| leaf table     | varint payload_size | varint rowid | payload |
| interior table | 4B left child       | varint rowid key       |
| leaf index     | varint payload_size | payload                |
| interior index | 4B left child       | varint payload_size | payload |
*/

// leafTableCell parses a leaf-table cell. overflowed reports that the
// payload spills into an overflow chain and only its in-page prefix is
// returned.
func leafTableCell(cell []byte) (rowid int64, payload []byte, overflowed bool, err error) {
	size, n, err := record.Varint(cell)
	if err != nil {
		return 0, nil, false, fmt.Errorf("leaf table cell payload size: %w", err)
	}
	id, m, err := record.Varint(cell[n:])
	if err != nil {
		return 0, nil, false, fmt.Errorf("leaf table cell rowid: %w", err)
	}
	body := cell[n+m:]
	if size > uint64(len(body)) {
		return int64(id), body, true, nil
	}
	return int64(id), body[:size], false, nil
}

// interiorTableCell parses an interior-table cell into its left child and
// rowid key.
func interiorTableCell(cell []byte) (left uint32, key int64, err error) {
	if len(cell) < constants.Uint32Size {
		return 0, 0, fmt.Errorf("%w: interior table cell too short", page.ErrBadPage)
	}
	left = constants.BinaryAlgorithm.Uint32(cell[:constants.Uint32Size])
	k, _, err := record.Varint(cell[constants.Uint32Size:])
	if err != nil {
		return 0, 0, fmt.Errorf("interior table cell key: %w", err)
	}
	return left, int64(k), nil
}

// indexPayload parses the record payload out of an index cell, leaf or
// interior. For interior cells the caller strips the left child first.
func indexPayload(cell []byte) ([]byte, error) {
	size, n, err := record.Varint(cell)
	if err != nil {
		return nil, fmt.Errorf("index cell payload size: %w", err)
	}
	body := cell[n:]
	if size > uint64(len(body)) {
		return nil, fmt.Errorf("%w: index key spills to an overflow chain", ErrUnsupported)
	}
	return body[:size], nil
}

type tableScanFunc func(rowid int64, payload []byte, overflowed bool) error

// scanTable walks the table btree rooted at root and calls fn for every
// row, in ascending rowid order.
func (db *DB) scanTable(root uint32, fn tableScanFunc) error {
	db.metrics.IncCounterOne(dbCounterTableScan)
	return db.walkTable(root, fn)
}

func (db *DB) walkTable(pgno uint32, fn tableScanFunc) error {
	p, err := db.ReadPage(pgno)
	if err != nil {
		return err
	}
	switch p.Type() {
	case constants.PageTypeLeafTable:
		for i := uint16(0); i < p.CellCount(); i++ {
			cell, err := p.Cell(i)
			if err != nil {
				return err
			}
			rowid, payload, overflowed, err := leafTableCell(cell)
			if err != nil {
				return err
			}
			if err := fn(rowid, payload, overflowed); err != nil {
				return err
			}
		}
		return nil
	case constants.PageTypeInteriorTable:
		for i := uint16(0); i < p.CellCount(); i++ {
			cell, err := p.Cell(i)
			if err != nil {
				return err
			}
			left, _, err := interiorTableCell(cell)
			if err != nil {
				return err
			}
			if err := db.walkTable(left, fn); err != nil {
				return err
			}
		}
		return db.walkTable(p.RightChild(), fn)
	default:
		return fmt.Errorf("%w: page %d: index page in a table btree", page.ErrBadPage, pgno)
	}
}

// findRow descends the table btree to the single row with the given rowid.
func (db *DB) findRow(root uint32, rowid int64) (payload []byte, overflowed bool, found bool, err error) {
	db.metrics.IncCounterOne(dbCounterRowFetch)
	pgno := root
	for {
		p, err := db.ReadPage(pgno)
		if err != nil {
			return nil, false, false, err
		}
		switch p.Type() {
		case constants.PageTypeLeafTable:
			for i := uint16(0); i < p.CellCount(); i++ {
				cell, err := p.Cell(i)
				if err != nil {
					return nil, false, false, err
				}
				id, payload, overflowed, err := leafTableCell(cell)
				if err != nil {
					return nil, false, false, err
				}
				if id == rowid {
					return payload, overflowed, true, nil
				}
			}
			return nil, false, false, nil
		case constants.PageTypeInteriorTable:
			// descend into the first cell whose key covers the target,
			// or the rightmost child
			next := p.RightChild()
			for i := uint16(0); i < p.CellCount(); i++ {
				cell, err := p.Cell(i)
				if err != nil {
					return nil, false, false, err
				}
				left, key, err := interiorTableCell(cell)
				if err != nil {
					return nil, false, false, err
				}
				if rowid <= key {
					next = left
					break
				}
			}
			pgno = next
		default:
			return nil, false, false, fmt.Errorf("%w: page %d: index page in a table btree", page.ErrBadPage, pgno)
		}
	}
}

// countRows counts leaf-table cells without decoding any payload.
func (db *DB) countRows(root uint32) (int64, error) {
	p, err := db.ReadPage(root)
	if err != nil {
		return 0, err
	}
	switch p.Type() {
	case constants.PageTypeLeafTable:
		return int64(p.CellCount()), nil
	case constants.PageTypeInteriorTable:
		var total int64
		for i := uint16(0); i < p.CellCount(); i++ {
			cell, err := p.Cell(i)
			if err != nil {
				return 0, err
			}
			left, _, err := interiorTableCell(cell)
			if err != nil {
				return 0, err
			}
			n, err := db.countRows(left)
			if err != nil {
				return 0, err
			}
			total += n
		}
		n, err := db.countRows(p.RightChild())
		if err != nil {
			return 0, err
		}
		return total + n, nil
	default:
		return 0, fmt.Errorf("%w: page %d: index page in a table btree", page.ErrBadPage, root)
	}
}

// scanIndex collects the rowids of every index entry whose key equals
// probe. Equal keys are not assumed contiguous; the walk keeps collecting
// across sibling subtrees.
func (db *DB) scanIndex(root uint32, probe []byte) ([]int64, error) {
	db.metrics.IncCounterOne(dbCounterIndexProbe)
	var rowids []int64
	if err := db.walkIndex(root, probe, &rowids); err != nil {
		return nil, err
	}
	return rowids, nil
}

func (db *DB) walkIndex(pgno uint32, probe []byte, rowids *[]int64) error {
	p, err := db.ReadPage(pgno)
	if err != nil {
		return err
	}
	switch p.Type() {
	case constants.PageTypeLeafIndex:
		for i := uint16(0); i < p.CellCount(); i++ {
			cell, err := p.Cell(i)
			if err != nil {
				return err
			}
			payload, err := indexPayload(cell)
			if err != nil {
				return err
			}
			key, rowid, err := db.decodeIndexEntry(payload)
			if err != nil {
				return err
			}
			if compareProbe(probe, key) == 0 {
				*rowids = append(*rowids, rowid)
			}
		}
		return nil
	case constants.PageTypeInteriorIndex:
		for i := uint16(0); i < p.CellCount(); i++ {
			cell, err := p.Cell(i)
			if err != nil {
				return err
			}
			if len(cell) < constants.Uint32Size {
				return fmt.Errorf("%w: interior index cell too short", page.ErrBadPage)
			}
			left := constants.BinaryAlgorithm.Uint32(cell[:constants.Uint32Size])
			payload, err := indexPayload(cell[constants.Uint32Size:])
			if err != nil {
				return err
			}
			key, rowid, err := db.decodeIndexEntry(payload)
			if err != nil {
				return err
			}
			cmp := compareProbe(probe, key)
			if cmp < 0 {
				return db.walkIndex(left, probe, rowids)
			}
			if cmp == 0 {
				// duplicates may live in the left subtree, and the
				// interior cell itself names a matching row
				if err := db.walkIndex(left, probe, rowids); err != nil {
					return err
				}
				*rowids = append(*rowids, rowid)
			}
		}
		return db.walkIndex(p.RightChild(), probe, rowids)
	default:
		return fmt.Errorf("%w: page %d: table page in an index btree", page.ErrBadPage, pgno)
	}
}

// decodeIndexEntry splits an index record into its first key column and the
// trailing target rowid.
func (db *DB) decodeIndexEntry(payload []byte) (record.Value, int64, error) {
	db.metrics.IncCounterOne(dbCounterRecordDecode)
	rec, err := record.Decode(payload)
	if err != nil {
		return record.Value{}, 0, err
	}
	if rec.Overflow {
		return record.Value{}, 0, fmt.Errorf("%w: index record spills to an overflow chain", ErrUnsupported)
	}
	if len(rec.Vals) < 2 {
		return record.Value{}, 0, fmt.Errorf("%w: index record has %d columns", record.ErrMalformedRecord, len(rec.Vals))
	}
	target := rec.Vals[len(rec.Vals)-1]
	if target.Type != record.TypeInt64 {
		return record.Value{}, 0, fmt.Errorf("%w: index record target is not a rowid", record.ErrMalformedRecord)
	}
	return rec.Vals[0], target.I64, nil
}

// compareProbe orders a byte-string probe against a decoded key using the
// storage-class order NULL < numeric < text < blob, byte-wise within text.
func compareProbe(probe []byte, key record.Value) int {
	switch key.Type {
	case record.TypeNull, record.TypeInt64, record.TypeFloat64:
		return 1
	case record.TypeText:
		return bytes.Compare(probe, key.Str)
	default:
		return -1
	}
}
