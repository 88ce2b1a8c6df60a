package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// Error is a non-2xx response of the server.
type Error struct {
	StatusCode int
	// Detail is the message the server attached to the response, with its
	// placeholders filled in.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status code %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Detail)
}

// AsError returns the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// newError reads the detail from a body such as
// {"detail": "Motion {0} is locked.", "args": ["A1"]}.
// Bodies without a detail fall back to the status text.
func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	detail, err := jsonparser.GetString(body, "detail")
	if err != nil {
		e.Detail = http.StatusText(status)
		return e
	}

	i := 0
	_, _ = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		arg := string(value)
		if dataType == jsonparser.String {
			if s, err := jsonparser.ParseString(value); err == nil {
				arg = s
			}
		}
		detail = strings.ReplaceAll(detail, "{"+strconv.Itoa(i)+"}", arg)
		i++
	}, "args")

	e.Detail = detail
	return e
}
