package litescan

import "errors"

var (
	ErrBadHeader    = errors.New("bad database header")
	ErrUnsupported  = errors.New("unsupported")
	ErrNoSuchTable  = errors.New("no such table")
	ErrNoSuchColumn = errors.New("no such column")
)
