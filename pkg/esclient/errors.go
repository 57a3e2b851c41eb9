package esclient

import "fmt"

// ConnectionError wraps a transport-level failure talking to the search
// backend (spec §4.1/§7).
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("search backend connection error at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResponseCodeError wraps a non-2xx HTTP response from the search backend.
type ResponseCodeError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ResponseCodeError) Error() string {
	return fmt.Sprintf("search backend %s responded %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// BulkItemError is one failed item within a bulk request.
type BulkItemError struct {
	Index int
	Err   error
}

func (e *BulkItemError) Error() string {
	return fmt.Sprintf("bulk item %d: %v", e.Index, e.Err)
}

// BulkFail is returned by Client.Bulk when one or more items in the request
// failed to index. RequestID correlates it with the bulk request's log
// lines; Items aggregates every BulkItemError via go.uber.org/multierr.
type BulkFail struct {
	RequestID string
	Items     error
}

func (e *BulkFail) Error() string {
	return fmt.Sprintf("bulk request %s partial failure: %v", e.RequestID, e.Items)
}

func (e *BulkFail) Unwrap() error { return e.Items }
