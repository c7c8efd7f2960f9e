package characterapi

import (
	"fmt"

	"github.com/pkg/errors"
)

// FetchError is returned when a page could not be fetched or did not have the expected shape
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error fetching %s: status %d: %s", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("error fetching %s: %s", e.URL, e.Err)
}

// Unwrap returns the underlying cause
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is or wraps a FetchError
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

func fetchError(url string, statusCode int, err error) error {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}
