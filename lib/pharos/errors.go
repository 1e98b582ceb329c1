package pharos

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"utprint/lib/htmlutil"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in to the print server")
	ErrUnexpectedResponse = errors.New("unexpected response from the print server")
	ErrJobFailed          = errors.New("print job failed")
	ErrJobNotFound        = errors.New("print job not found")
	ErrInvalidOptions     = errors.New("invalid print options")
)

// APIError is an error status returned by the print server.
type APIError struct {
	Status      int        `json:"Status"`
	UserMessage string     `json:"UserMessage"`
	ErrorCode   flexString `json:"ErrorCode"`
	Request     string     `json:"Request"`
}

func (e *APIError) Error() string {
	message := e.UserMessage
	if message == "" {
		message = http.StatusText(e.Status)
	}
	return fmt.Sprintf("[Status %d] %s", e.Status, message)
}

// IsAuthError reports whether err is the server rejecting the
// credentials or token.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

func errorFromResponse(res *resty.Response) error {
	body := res.Body()
	if htmlutil.LooksLikeHTML(res.Header().Get("Content-Type"), body) {
		return &APIError{
			Status:      res.StatusCode(),
			UserMessage: htmlutil.Summarize(body),
		}
	}

	var apiErr APIError
	err := json.Unmarshal(body, &apiErr)
	if err != nil || (apiErr.Status == 0 && apiErr.UserMessage == "") {
		return &APIError{
			Status:      res.StatusCode(),
			UserMessage: strings.TrimSpace(string(body)),
		}
	}
	if apiErr.Status == 0 {
		apiErr.Status = res.StatusCode()
	}
	return &apiErr
}

func decodeBody(res *resty.Response, out any) error {
	err := json.Unmarshal(res.Body(), out)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, err.Error())
	}
	return nil
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

// Amount is a currency amount, the server sends these as either JSON
// numbers or strings.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(b), err)
	}
	*a = Amount(f)
	return nil
}
