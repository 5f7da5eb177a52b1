package httpclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

const maxBody = 8 << 20

// StatusError is a non-2xx response from an upstream service.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

// ParseResponseError consumes and closes resp.Body and converts it into a
// *StatusError, keeping the code and message of an error envelope when the
// upstream sent one.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &StatusError{Status: resp.StatusCode, Message: "unreadable body: " + err.Error()}
	}

	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		return &StatusError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	return &StatusError{Status: resp.StatusCode, Message: string(body)}
}
