package transform

import (
	"github.com/rzbill/flo-transform/internal/eventlog"
)

// Func maps one source entry to zero or more output records. Returning no
// records filters the entry out.
type Func func(eventlog.Entry) ([]eventlog.Record, error)

// Identity copies every entry through unchanged.
func Identity(e eventlog.Entry) ([]eventlog.Record, error) {
	return []eventlog.Record{e.Record}, nil
}
