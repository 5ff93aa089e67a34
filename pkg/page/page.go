package page

import (
	"errors"
	"fmt"

	"github.com/dashjay/litescan/pkg/constants"
	"github.com/dashjay/litescan/pkg/utils"
)

var ErrBadPage = errors.New("bad page")

/*
Page layout
| btree header | cell pointer array | unallocated | cell content area |
|   8B / 12B   |  cell_count * 2B   |     ...     |        ...        |

Within the btree header:
| type | first freeblock | cell count | content start | frag | right child |
|  1B  |       2B        |     2B     |      2B       |  1B  | 4B interior |

Page 1 additionally starts with the 100-byte database header; every offset
of the btree header is shifted by that amount there. Cell pointers are
relative to the start of the page proper.
*/
type Page struct {
	data []byte
	base int
}

// New wraps raw page bytes. pgno is 1-based; page 1 carries the database
// header in front of its btree header.
func New(pgno uint32, data []byte) (Page, error) {
	p := Page{data: data}
	if pgno == 1 {
		p.base = constants.FileHeaderSize
	}
	if len(data) < p.base+constants.LeafPageHeaderSize {
		return Page{}, fmt.Errorf("%w: page %d smaller than btree header", ErrBadPage, pgno)
	}
	switch p.Type() {
	case constants.PageTypeInteriorIndex, constants.PageTypeInteriorTable,
		constants.PageTypeLeafIndex, constants.PageTypeLeafTable:
	default:
		return Page{}, fmt.Errorf("%w: page %d has unknown type byte 0x%02x", ErrBadPage, pgno, p.Type())
	}
	return p, nil
}

func (p Page) Type() byte {
	return p.data[p.base]
}

func (p Page) IsLeaf() bool {
	return p.Type() == constants.PageTypeLeafTable || p.Type() == constants.PageTypeLeafIndex
}

func (p Page) CellCount() uint16 {
	return constants.BinaryAlgorithm.Uint16(p.data[p.base+3 : p.base+5])
}

// RightChild is the rightmost child page number; interior pages only.
func (p Page) RightChild() uint32 {
	utils.Assertf(!p.IsLeaf(), "RightChild: page type 0x%02x is a leaf", p.Type())
	return constants.BinaryAlgorithm.Uint32(p.data[p.base+8 : p.base+12])
}

func (p Page) headerSize() int {
	if p.IsLeaf() {
		return constants.LeafPageHeaderSize
	}
	return constants.InteriorPageHeaderSize
}

// headerEnd is the end of the btree header plus the cell pointer array,
// relative to the start of the page proper.
func (p Page) headerEnd() int {
	return p.base + p.headerSize() + int(p.CellCount())*constants.Uint16Size
}

func (p Page) cellOffset(idx uint16) uint16 {
	utils.Assertf(idx < p.CellCount(), "cellOffset: idx %d out of cell count %d", idx, p.CellCount())
	pos := p.base + p.headerSize() + int(idx)*constants.Uint16Size
	return constants.BinaryAlgorithm.Uint16(p.data[pos : pos+constants.Uint16Size])
}

// Cell returns the bytes of cell idx, from its pointer to the end of the
// page. The caller parses the cell-kind specific shape out of the prefix.
func (p Page) Cell(idx uint16) ([]byte, error) {
	offset := int(p.cellOffset(idx))
	if offset < p.headerEnd() || offset >= len(p.data) {
		return nil, fmt.Errorf("%w: cell %d pointer %d outside [%d, %d)",
			ErrBadPage, idx, offset, p.headerEnd(), len(p.data))
	}
	return p.data[offset:], nil
}
