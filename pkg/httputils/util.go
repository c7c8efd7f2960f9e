package httputils

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GetContent of the request inside given struct
func GetContent(v interface{}, closer io.ReadCloser) error {
	body, err := ioutil.ReadAll(closer)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, v)
	return err
}

// HandleResponseError builds at HttpErrorResponse from the given response
func HandleResponseError(response *http.Response) error {
	logrus.Debugf("handling failure response with status %d", response.StatusCode)

	httpErr := HTTPErrorResponse{
		StatusCode: response.StatusCode,
	}

	body := make(map[string]interface{})
	if err := GetContent(&body, response.Body); err != nil {
		httpErr.ErrorMessage = http.StatusText(response.StatusCode)
		return errors.Wrap(httpErr, "error handling failure response")
	}

	if errorKey, ok := body["error"].(string); ok {
		httpErr.ErrorKey = errorKey
	}

	if description, ok := body["description"].(string); ok {
		httpErr.ErrorMessage = description
	}

	return httpErr
}

// WriteResponse writes the given status code and the given object body to the given ResponseWriter
func WriteResponse(w http.ResponseWriter, code int, object interface{}) {
	data, err := json.Marshal(object)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	WriteJSON(w, code, data)
}

// WriteJSON writes the already encoded JSON body with the given status code
func WriteJSON(w http.ResponseWriter, code int, data []byte) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logrus.WithError(err).Debug("could not write response body")
	}
}
