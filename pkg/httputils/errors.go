package httputils

import "fmt"

// HTTPErrorResponse is the {"error": ..., "description": ...} error body used by the character API
// and by the JSON endpoints of the gallery
type HTTPErrorResponse struct {
	StatusCode   int    `json:"-"`
	ErrorMessage string `json:"description,omitempty"`
	ErrorKey     string `json:"error,omitempty"`
}

func (e HTTPErrorResponse) Error() string {
	switch {
	case e.ErrorKey == "":
		return e.ErrorMessage
	case e.ErrorMessage == "":
		return e.ErrorKey
	default:
		return fmt.Sprintf("%s: %s", e.ErrorKey, e.ErrorMessage)
	}
}
