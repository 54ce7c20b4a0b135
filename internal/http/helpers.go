package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// formatMoney renders cents as "$1,234.56", with a leading minus for
// negative values.
func formatMoney(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	s := "$" + whole + "." + twoDigits(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID reads the numeric {id} route variable. The route pattern already
// restricts it to digits, so only overflow can fail.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// currentUser returns the identity the session middleware stored. Handlers
// behind the guard can rely on it being present.
func currentUser(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func isPartialRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown for err. Amount errors keep their parse
// detail; internal failures never leak their cause.
func userMessage(err error) string {
	var (
		ve *core.ValidationError
		ae *core.AmountError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &ae) && ae.Err != nil:
		return "Please enter a valid, non-negative amount: " + ae.Err.Error()
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid, non-negative amount."
	case errors.Is(err, core.ErrNotFound):
		return "Not found."
	case errors.Is(err, core.ErrDuplicateUsername):
		return "That username is already taken."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password."
	default:
		return "Something went wrong. Please try again."
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// logFailure logs 5xx causes; client errors are already visible in the
// access log.
func logFailure(r *http.Request, msg string, err error, operation string) {
	if statusFor(err) < http.StatusInternalServerError {
		return
	}
	user := currentUser(r)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, operation,
		log.NewFields().WithUser(user.UserID))
}
