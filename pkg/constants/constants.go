package constants

import "encoding/binary"

// FileHeaderSize is the size of the database header at the start of page 1.
const FileHeaderSize = 100

const MagicString = "SQLite format 3\x00"

// b-tree page type bytes
const (
	PageTypeInteriorIndex = 0x02
	PageTypeInteriorTable = 0x05
	PageTypeLeafIndex     = 0x0a
	PageTypeLeafTable     = 0x0d
)

const (
	LeafPageHeaderSize     = 8
	InteriorPageHeaderSize = 12
)

// the page size field must be a power of two in this range,
// or the value 1 which stands for 65536
const (
	MinPageSize = 512
	MaxPageSize = 65536
)

const (
	Uint16Size = 2
	Uint32Size = 4
	Uint64Size = 8
)

// schema table column positions, rooted at page 1
const (
	SchemaColType     = 0
	SchemaColName     = 1
	SchemaColTblName  = 2
	SchemaColRootPage = 3
	SchemaColSQL      = 4
	SchemaColumnCount = 5
)

//nolint:gochecknoglobals // the file format is big-endian throughout
var BinaryAlgorithm = binary.BigEndian
