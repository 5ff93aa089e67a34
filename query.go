package litescan

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type QueryKind int

const (
	QueryDBInfo QueryKind = iota
	QueryTables
	QueryIndexes
	QuerySchema
	QueryCount
	QuerySelect
)

// Query is the parsed form of one shell command.
type Query struct {
	Kind    QueryKind
	Table   string
	Columns []string
	Filter  *EqualFilter
}

// EqualFilter is the single supported WHERE shape: column = 'literal'.
type EqualFilter struct {
	Column string
	Value  []byte
}

// foldCase lowercases the statement up to the first single quote, so the
// literal keeps its case.
func foldCase(stmt string) string {
	if i := strings.IndexByte(stmt, '\''); i >= 0 {
		return strings.ToLower(stmt[:i]) + stmt[i:]
	}
	return strings.ToLower(stmt)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// ParseQuery recognizes the dot-commands and the SELECT subset:
//
//	.dbinfo | .tables | .indexes | .schema
//	SELECT COUNT(*) FROM <table>
//	SELECT <col>[, <col>...] FROM <table> [WHERE <col> = '<literal>']
func ParseQuery(command string) (Query, error) {
	stmt := strings.TrimSpace(command)
	switch stmt {
	case ".dbinfo":
		return Query{Kind: QueryDBInfo}, nil
	case ".tables":
		return Query{Kind: QueryTables}, nil
	case ".indexes":
		return Query{Kind: QueryIndexes}, nil
	case ".schema":
		return Query{Kind: QuerySchema}, nil
	}

	folded := foldCase(stmt)
	unsupported := fmt.Errorf("%w syntax: %s", ErrUnsupported, stmt)

	if !strings.HasPrefix(folded, "select ") {
		return Query{}, unsupported
	}
	rest := folded[len("select "):]

	fromPos := strings.Index(rest, " from ")
	if fromPos < 0 {
		return Query{}, unsupported
	}
	columnList := strings.TrimSpace(rest[:fromPos])
	rest = rest[fromPos+len(" from "):]

	var filter *EqualFilter
	if wherePos := strings.Index(rest, " where "); wherePos >= 0 {
		clause := rest[wherePos+len(" where "):]
		rest = rest[:wherePos]
		eq := strings.IndexByte(clause, '=')
		if eq < 0 {
			return Query{}, unsupported
		}
		column := strings.TrimSpace(clause[:eq])
		literal := strings.TrimSpace(clause[eq+1:])
		if !isIdent(column) ||
			len(literal) < 2 || literal[0] != '\'' || literal[len(literal)-1] != '\'' {
			return Query{}, unsupported
		}
		filter = &EqualFilter{Column: column, Value: []byte(literal[1 : len(literal)-1])}
	}

	table := strings.TrimSpace(rest)
	if !isIdent(table) {
		return Query{}, unsupported
	}

	if columnList == "count(*)" {
		if filter != nil {
			return Query{}, unsupported
		}
		return Query{Kind: QueryCount, Table: table}, nil
	}

	columns := lo.Map(strings.Split(columnList, ","), func(c string, _ int) string {
		return strings.TrimSpace(c)
	})
	for _, c := range columns {
		if c != "*" && !isIdent(c) {
			return Query{}, unsupported
		}
	}
	return Query{Kind: QuerySelect, Table: table, Columns: columns, Filter: filter}, nil
}
