package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	msgUnauthenticated = "Unauthenticated."
	msgMaintenance     = "Server is under maintenance."
	msgNotFound        = "Not found."
)

type pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}

type envelope struct {
	Status     string              `json:"status"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data"`
	Pagination *pagination         `json:"pagination,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("encode response")
	}
}

func writeData(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: message, Data: data})
}

func writePage(w http.ResponseWriter, data any, p *pagination) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data, Pagination: p})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "error", Message: message})
}

// writeRejected answers 200 with an error status, which is how the backend
// reports business rule violations.
func writeRejected(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Status: "error", Message: message})
}

// fieldErrors collects validation messages in the order they were found.
type fieldErrors struct {
	order  []string
	fields map[string][]string
}

func (e *fieldErrors) add(field, message string) {
	if e.fields == nil {
		e.fields = map[string][]string{}
	}
	if _, ok := e.fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.fields[field] = append(e.fields[field], message)
}

func (e *fieldErrors) required(field string, value any) {
	if isBlank(value) {
		e.add(field, "The "+strings.ReplaceAll(field, "_", " ")+" field is required.")
	}
}

func (e *fieldErrors) empty() bool {
	return len(e.order) == 0
}

func writeValidation(w http.ResponseWriter, e *fieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Status:  "error",
		Message: e.fields[e.order[0]][0],
		Errors:  e.fields,
	})
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// decodeBody reads a JSON body. An empty body decodes to the zero value.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
