package litescan

import (
	"fmt"
	"io"
	"math/bits"
	"os"

	"golang.org/x/sys/unix"

	"github.com/dashjay/litescan/pkg/constants"
	"github.com/dashjay/litescan/pkg/page"
)

// DB is a read-only handle on a single database file. The whole file is
// mapped once; page reads are borrows of the mapping and stay valid until
// Close.
type DB struct {
	Path string
	// internals
	file     *os.File
	data     []byte // read-only mmap of the whole file
	pageSize int

	metrics *metrics
}

// Open maps the database file and validates its header.
func Open(fp string) (*DB, error) {
	file, err := os.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	finfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat database: %w", err)
	}
	if finfo.Size() < constants.FileHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: file is %d bytes, smaller than the %d byte header",
			ErrBadHeader, finfo.Size(), constants.FileHeaderSize)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(finfo.Size()),
		unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap database: %w", err)
	}

	db := &DB{Path: fp, file: file, data: data, metrics: newMetrics()}
	if err := db.readHeader(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) readHeader() error {
	header := db.data[:constants.FileHeaderSize]
	if string(header[:len(constants.MagicString)]) != constants.MagicString {
		return fmt.Errorf("%w: bad magic string", ErrBadHeader)
	}
	pageSize := int(constants.BinaryAlgorithm.Uint16(header[16:18]))
	if pageSize == 1 {
		// the value 1 stands for the maximum page size
		pageSize = constants.MaxPageSize
	}
	if pageSize < constants.MinPageSize || pageSize > constants.MaxPageSize ||
		bits.OnesCount(uint(pageSize)) != 1 {
		return fmt.Errorf("%w: page size %d", ErrBadHeader, pageSize)
	}
	db.pageSize = pageSize
	return nil
}

func (db *DB) PageSize() int {
	return db.pageSize
}

// ReadPage returns page pgno (1-based) as a borrow of the mapping.
func (db *DB) ReadPage(pgno uint32) (page.Page, error) {
	db.metrics.IncCounterOne(dbCounterPageRead)
	if pgno == 0 {
		return page.Page{}, fmt.Errorf("%w: page number 0", page.ErrBadPage)
	}
	start := int64(pgno-1) * int64(db.pageSize)
	end := start + int64(db.pageSize)
	if end > int64(len(db.data)) {
		return page.Page{}, fmt.Errorf("%w: page %d beyond end of file", page.ErrBadPage, pgno)
	}
	return page.New(pgno, db.data[start:end])
}

// PagesRead reports how many page reads this handle has served.
func (db *DB) PagesRead() uint64 {
	return db.metrics.Counters[dbCounterPageRead].Load()
}

func (db *DB) ReportMetrics(w io.Writer) {
	db.metrics.ReportMetrics(w)
}

// Close unmaps the file and closes the handle.
func (db *DB) Close() error {
	if db.data != nil {
		if err := unix.Munmap(db.data); err != nil {
			return fmt.Errorf("munmap database: %w", err)
		}
		db.data = nil
	}
	if db.file != nil {
		if err := db.file.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		db.file = nil
	}
	return nil
}
