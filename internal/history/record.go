// Package history reads the recorded-request table written by the
// request-logging middleware and prepares the ordered sequence to replay.
package history

import "strconv"

// Columns of the history table, in projection order. The first column is the
// row identity assigned by the store; display renumbers it.
var Columns = []string{
	"id",
	"label",
	"request_method",
	"request_path",
	"request_data_binary",
	"response_code",
}

// Record is one recorded HTTP request. The column set is fixed and known
// ahead of time, so rows map onto one static struct instead of a per-query
// shape.
type Record struct {
	ID           int64
	Label        string
	Method       string
	Path         string
	Body         []byte
	ResponseCode int
}

// Cells returns the record's values as display strings in column order.
func (r Record) Cells() []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Label,
		r.Method,
		r.Path,
		string(r.Body),
		strconv.Itoa(r.ResponseCode),
	}
}
