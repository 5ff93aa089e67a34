package litescan

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
)

const (
	// dbCounterPageRead indicate how many times db read a btree page
	dbCounterPageRead string = "db-counter-page-read"
	// dbCounterRecordDecode indicate how many row payloads were decoded
	dbCounterRecordDecode string = "db-counter-record-decode"
	// dbCounterTableScan indicate how many table btree scans were started
	dbCounterTableScan string = "db-counter-table-scan"
	// dbCounterIndexProbe indicate how many index btree probes were started
	dbCounterIndexProbe string = "db-counter-index-probe"
	// dbCounterRowFetch indicate how many rowid point lookups were run
	dbCounterRowFetch string = "db-counter-row-fetch"
)

var allMetrics = []string{
	dbCounterPageRead,
	dbCounterRecordDecode,
	dbCounterTableScan,
	dbCounterIndexProbe,
	dbCounterRowFetch,
}

type metrics struct {
	Counters map[string]*Counter
}

func newMetrics() *metrics {
	m := &metrics{
		Counters: make(map[string]*Counter, len(allMetrics)),
	}
	for _, metric := range allMetrics {
		m._initCounter(metric)
	}
	return m
}

type Counter struct {
	v uint64
}

func (c *Counter) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(c.v))), nil
}

func (c *Counter) add(v uint64) {
	atomic.AddUint64(&c.v, v)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.v)
}

func (m *metrics) _initCounter(metric string) {
	m.Counters[metric] = new(Counter)
}

func (m *metrics) IncCounterOne(metric string) {
	m.Counters[metric].add(1)
}

func (m *metrics) ReportMetrics(w io.Writer) {
	_ = json.NewEncoder(w).Encode(m.Counters)
	fmt.Fprint(w, "\n")
}
