package openslides

import (
	"github.com/openslides/openslides.go/httpclient"
)

// Notice renders err as a one-line message for people. Errors from the
// server show the detail the server sent; anything else shows err itself.
// A nil error yields "".
func Notice(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := httpclient.AsError(err); ok && apiErr.Detail != "" {
		return "Error: " + apiErr.Detail
	}
	return "Error: " + err.Error()
}
