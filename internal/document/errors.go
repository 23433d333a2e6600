package document

import "fmt"

// DataError represents a malformed input document (unparseable YAML/JSON,
// or a shape the tree model cannot hold).
type DataError struct {
	Message string
	Cause   error
}

func (e *DataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("data error: %s", e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Cause
}

// FilterError represents a malformed visibility tag (a show_on value that
// is neither a string nor a list of strings).
type FilterError struct {
	Message string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter error: %s", e.Message)
}
