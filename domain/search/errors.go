package search

import "fmt"

// NoResultsError is returned when the considered pool for a query is empty
type NoResultsError struct {
	Query string
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("could not find a GIF for query: %q", e.Query)
}

// APIError is a structured error payload returned by the search service
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search API responded with error %d: %q", e.Code, e.Message)
}

// TransportError covers network, timeout and decode failures.
// Unlike APIError these are environmental and usually worth retrying.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("search %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
