package litescan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashjay/litescan/pkg/constants"
	"github.com/dashjay/litescan/pkg/record"
)

// Test fixtures are assembled page by page with the same layout the reader
// expects: btree header, cell pointer array, cell content packed at the
// tail of the page. Page 1 additionally carries the 100-byte file header.

func encodeRecord(vals ...record.Value) []byte {
	var serials []uint64
	var body []byte
	for _, v := range vals {
		switch v.Type {
		case record.TypeNull:
			serials = append(serials, 0)
		case record.TypeInt64:
			serials = append(serials, 6)
			var buf [8]byte
			constants.BinaryAlgorithm.PutUint64(buf[:], uint64(v.I64))
			body = append(body, buf[:]...)
		case record.TypeText:
			serials = append(serials, uint64(13+2*len(v.Str)))
			body = append(body, v.Str...)
		case record.TypeBlob:
			serials = append(serials, uint64(12+2*len(v.Str)))
			body = append(body, v.Str...)
		}
	}
	var serialBytes []byte
	for _, s := range serials {
		serialBytes = record.AppendVarint(serialBytes, s)
	}
	headerSize := len(serialBytes) + 1
	for record.VarintLen(uint64(headerSize))+len(serialBytes) > headerSize {
		headerSize = record.VarintLen(uint64(headerSize)) + len(serialBytes)
	}
	payload := record.AppendVarint(nil, uint64(headerSize))
	payload = append(payload, serialBytes...)
	return append(payload, body...)
}

func leafTableCellBytes(rowid int64, payload []byte) []byte {
	cell := record.AppendVarint(nil, uint64(len(payload)))
	cell = record.AppendVarint(cell, uint64(rowid))
	return append(cell, payload...)
}

func interiorTableCellBytes(left uint32, key int64) []byte {
	var cell [4]byte
	constants.BinaryAlgorithm.PutUint32(cell[:], left)
	return record.AppendVarint(cell[:], uint64(key))
}

func leafIndexCellBytes(payload []byte) []byte {
	cell := record.AppendVarint(nil, uint64(len(payload)))
	return append(cell, payload...)
}

func interiorIndexCellBytes(left uint32, payload []byte) []byte {
	var prefix [4]byte
	constants.BinaryAlgorithm.PutUint32(prefix[:], left)
	cell := record.AppendVarint(prefix[:], uint64(len(payload)))
	return append(cell, payload...)
}

type fixturePage struct {
	typ        byte
	rightChild uint32
	cells      [][]byte
}

func leafTablePage(cells ...[]byte) fixturePage {
	return fixturePage{typ: constants.PageTypeLeafTable, cells: cells}
}

func interiorTablePage(rightChild uint32, cells ...[]byte) fixturePage {
	return fixturePage{typ: constants.PageTypeInteriorTable, rightChild: rightChild, cells: cells}
}

func leafIndexPage(cells ...[]byte) fixturePage {
	return fixturePage{typ: constants.PageTypeLeafIndex, cells: cells}
}

func interiorIndexPage(rightChild uint32, cells ...[]byte) fixturePage {
	return fixturePage{typ: constants.PageTypeInteriorIndex, rightChild: rightChild, cells: cells}
}

func buildPageBytes(t *testing.T, pageSize, base int, fp fixturePage) []byte {
	pg := make([]byte, pageSize)
	pg[base] = fp.typ
	constants.BinaryAlgorithm.PutUint16(pg[base+3:base+5], uint16(len(fp.cells)))
	headerSize := constants.LeafPageHeaderSize
	if fp.typ == constants.PageTypeInteriorTable || fp.typ == constants.PageTypeInteriorIndex {
		headerSize = constants.InteriorPageHeaderSize
		constants.BinaryAlgorithm.PutUint32(pg[base+8:base+12], fp.rightChild)
	}
	ptrPos := base + headerSize
	contentOff := pageSize
	for _, cell := range fp.cells {
		contentOff -= len(cell)
		require.GreaterOrEqual(t, contentOff, ptrPos+2*len(fp.cells), "fixture page overflowed")
		copy(pg[contentOff:], cell)
		constants.BinaryAlgorithm.PutUint16(pg[ptrPos:ptrPos+2], uint16(contentOff))
		ptrPos += 2
	}
	constants.BinaryAlgorithm.PutUint16(pg[base+5:base+7], uint16(contentOff))
	return pg
}

// buildFixtureFile writes a database file whose page 1 is pages[0].
func buildFixtureFile(t *testing.T, pageSize int, pages []fixturePage) string {
	t.Helper()
	var data []byte
	for i, fp := range pages {
		base := 0
		if i == 0 {
			base = constants.FileHeaderSize
		}
		pg := buildPageBytes(t, pageSize, base, fp)
		if i == 0 {
			copy(pg, constants.MagicString)
			constants.BinaryAlgorithm.PutUint16(pg[16:18], uint16(pageSize))
		}
		data = append(data, pg...)
	}
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func schemaRecord(kind, name, tblName string, rootPage int64, sql string) []byte {
	return encodeRecord(
		record.NewValueText([]byte(kind)),
		record.NewValueText([]byte(name)),
		record.NewValueText([]byte(tblName)),
		record.NewValueInt64(rootPage),
		record.NewValueText([]byte(sql)),
	)
}

func openFixture(t *testing.T, pageSize int, pages []fixturePage) *DB {
	t.Helper()
	db, err := Open(buildFixtureFile(t, pageSize, pages))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// sampleFixture is the two-table database used by the shell tests:
// apples(id, name, color) with four rows and oranges(id, name,
// description) with six.
func sampleFixture(t *testing.T) *DB {
	t.Helper()
	apples := [][2]string{
		{"Granny Smith", "Light Green"},
		{"Fuji", "Red"},
		{"Honeycrisp", "Blush Red"},
		{"Golden Delicious", "Yellow"},
	}
	oranges := [][2]string{
		{"Mandarin", "great for snacking"},
		{"Tangelo", "sweet and tart"},
		{"Tangerine", "great for snacking"},
		{"Clementine", "usually seedless"},
		{"Valencia Orange", "best for juicing"},
		{"Navel Orange", "sweet with slight bitterness"},
	}
	var appleCells, orangeCells [][]byte
	for i, row := range apples {
		payload := encodeRecord(
			record.NewValueNull(),
			record.NewValueText([]byte(row[0])),
			record.NewValueText([]byte(row[1])),
		)
		appleCells = append(appleCells, leafTableCellBytes(int64(i+1), payload))
	}
	for i, row := range oranges {
		payload := encodeRecord(
			record.NewValueNull(),
			record.NewValueText([]byte(row[0])),
			record.NewValueText([]byte(row[1])),
		)
		orangeCells = append(orangeCells, leafTableCellBytes(int64(i+1), payload))
	}
	return openFixture(t, 4096, []fixturePage{
		leafTablePage(
			leafTableCellBytes(1, schemaRecord("table", "apples", "apples", 2,
				"CREATE TABLE apples (id integer primary key, name text, color text)")),
			leafTableCellBytes(2, schemaRecord("table", "oranges", "oranges", 3,
				"CREATE TABLE oranges (id integer primary key, name text, description text)")),
		),
		leafTablePage(appleCells...),
		leafTablePage(orangeCells...),
	})
}
