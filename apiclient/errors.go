package apiclient

import (
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
)

// User facing messages produced by the pipeline.
const (
	MsgSessionExpired      = "Session expired. Please login again."
	MsgMaintenanceRedirect = "Server is under maintenance. Redirecting..."
	MsgMaintenance         = "Server is under maintenance. Please try again later."
	MsgNetwork             = "Network error: Please check your internet connection"
	MsgRequestCancelled    = "Request cancelled"
	MsgGeneric             = "An error occurred"
	MsgRateLimited         = "Too many requests. Please try again shortly."
)

// Kind classifies a failed request.
type Kind int

const (
	KindServer Kind = iota
	KindSessionExpired
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindMaintenance
	KindNetwork
	KindBadResponse
)

var kindSentinels = map[Kind]error{
	KindServer:         errs.ErrServer,
	KindSessionExpired: errs.ErrSessionExpired,
	KindUnauthorized:   errs.ErrUnauthorized,
	KindForbidden:      errs.ErrForbidden,
	KindNotFound:       errs.ErrNotFound,
	KindValidation:     errs.ErrValidation,
	KindMaintenance:    errs.ErrMaintenance,
	KindNetwork:        errs.ErrNetwork,
	KindBadResponse:    errs.ErrBadResponse,
}

// Error is the normalized failure returned by every request. Message is
// safe to show to the user.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields holds validation messages per field, in payload order.
	Fields     map[string][]string
	FieldOrder []string

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel for the kind and, for cancelled requests,
// the context error.
func (e *Error) Unwrap() []error {
	out := []error{kindSentinels[e.Kind]}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// FieldError returns the first message for field.
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func sessionExpiredError() *Error {
	return &Error{Kind: KindSessionExpired, Status: http.StatusUnauthorized, Message: MsgSessionExpired}
}

// AsError extracts the pipeline error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errs.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Message returns what should be shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}

var authMarkers = []string{"unauthenticated", "unauthorized", "token", "expired"}

// isAuthFailure decides whether a failed response means the access token is
// no longer accepted. Revocation calls are never treated as such.
func isAuthFailure(path string, status int, message string) bool {
	if strings.Contains(path, "/revoke-token") {
		return false
	}
	if status == http.StatusUnauthorized {
		return true
	}
	lower := strings.ToLower(message)
	for _, marker := range authMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// suppressNotification reports whether a failure is an auth failure the
// user should not see a toast for.
func suppressNotification(status int, message string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "unauthenticated") || strings.Contains(lower, "unauthorized")
}

type errorPayload struct {
	message    string
	fields     map[string][]string
	fieldOrder []string
}

// parseErrorPayload reads message and errors from an error body without
// assuming the rest of its shape.
func parseErrorPayload(body []byte) errorPayload {
	var p errorPayload
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return p
	}
	p.message = gjson.GetBytes(body, "message").String()

	fields := gjson.GetBytes(body, "errors")
	if !fields.IsObject() {
		return p
	}
	p.fields = make(map[string][]string)
	fields.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		var msgs []string
		if value.IsArray() {
			for _, m := range value.Array() {
				msgs = append(msgs, m.String())
			}
		} else if value.String() != "" {
			msgs = []string{value.String()}
		}
		if len(msgs) > 0 {
			p.fields[name] = msgs
			p.fieldOrder = append(p.fieldOrder, name)
		}
		return true
	})
	return p
}

// validationMessage joins the first message of every field.
func (p errorPayload) validationMessage() string {
	firsts := make([]string, 0, len(p.fieldOrder))
	for _, name := range p.fieldOrder {
		firsts = append(firsts, p.fields[name][0])
	}
	return strings.Join(firsts, " ")
}

func kindForStatus(status int, hasFields bool) Kind {
	switch {
	case hasFields || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	}
	return KindServer
}
