package hostrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/cheques/internal/domain/shared"
)

// ErrMissingCredentials is returned by NewClient when key or secret is empty
var ErrMissingCredentials = errors.New("hostrpc: api key and secret are required")

// RemoteCallError is any failed host call: transport, HTTP status or a
// server-side exception. It matches shared.ErrRemoteCall with errors.Is.
type RemoteCallError struct {
	Method  string
	Status  int
	ExcType string
	Message string
	Err     error
}

func (e *RemoteCallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host call %s failed", e.Method)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.ExcType != "" {
		b.WriteString(": " + e.ExcType)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the transport cause, if any
func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Is reports a match against shared.ErrRemoteCall
func (e *RemoteCallError) Is(target error) bool {
	return target == shared.ErrRemoteCall
}

// errorBody is the shape of a host exception response
type errorBody struct {
	ExcType        string `json:"exc_type"`
	Exception      string `json:"exception"`
	Message        string `json:"message"`
	ServerMessages string `json:"_server_messages"`
}

// serverMessage decodes _server_messages: a JSON array of JSON-encoded
// objects with a message field. The first non-empty message wins.
func (b errorBody) serverMessage() string {
	if b.ServerMessages != "" {
		var raw []string
		if err := json.Unmarshal([]byte(b.ServerMessages), &raw); err == nil {
			for _, r := range raw {
				var m struct {
					Message string `json:"message"`
				}
				if json.Unmarshal([]byte(r), &m) == nil && m.Message != "" {
					return m.Message
				}
			}
		}
	}
	if b.Exception != "" {
		return b.Exception
	}
	return b.Message
}
