package web

// errors.go maps engine errors to coded client messages.
//
//	DATA001 - Duplicate key: the source has two rows for one country-year
//	DATA002 - No data: no table has been loaded yet
//	REQ001  - Unknown metric
//	REQ002  - Invalid selection or year
//	REQ003  - Request timed out
//	SRC001  - Source fetch failed
//	SRC002  - No source configured
//	ERR000  - Unexpected error; check server logs by request_id

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/tbrates/internal/catalog"
	"github.com/JonMunkholm/tbrates/internal/ingest"
	"github.com/JonMunkholm/tbrates/internal/logging"
	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// UserMessage is the client-facing description of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorKind struct {
	target error
	status int
	msg    UserMessage
}

// errorKinds is matched in order with errors.Is; the first match wins.
var errorKinds = []errorKind{
	{
		target: surveillance.ErrDuplicateKey,
		status: http.StatusBadGateway,
		msg: UserMessage{
			Message: "The source data has more than one row for a country and year",
			Action:  "The previous table is still in service; fix the source extract and refresh again",
			Code:    "DATA001",
		},
	},
	{
		target: catalog.ErrNoData,
		status: http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "No surveillance data has been loaded yet",
			Action:  "Wait for the first refresh to complete or trigger one",
			Code:    "DATA002",
		},
	},
	{
		target: surveillance.ErrUnknownMetric,
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "Unknown metric",
			Action:  "Use one of: tb_incidence, tb_mortality, tbhiv_incidence, tbhiv_mortality",
			Code:    "REQ001",
		},
	},
	{
		target: surveillance.ErrInvalidSelection,
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "Invalid country or year selection",
			Action:  "Pass country=<name> one or more times or all=true, and numeric years",
			Code:    "REQ002",
		},
	},
	{
		target: context.DeadlineExceeded,
		status: http.StatusGatewayTimeout,
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Please try again",
			Code:    "REQ003",
		},
	},
	{
		target: catalog.ErrNoSource,
		status: http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "No data source is configured",
			Action:  "Set SOURCE_PATH or SOURCE_URL",
			Code:    "SRC002",
		},
	},
}

var sourceFailure = errorKind{
	status: http.StatusBadGateway,
	msg: UserMessage{
		Message: "The surveillance source could not be read",
		Action:  "The previous table is still in service; check the source and try again",
		Code:    "SRC001",
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a client message and HTTP status.
func MapError(err error) (UserMessage, int) {
	if err == nil {
		return UserMessage{}, http.StatusOK
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg, k.status
		}
	}
	var srcErr *ingest.SourceError
	if errors.As(err, &srcErr) {
		return sourceFailure.msg, sourceFailure.status
	}
	return defaultMessage, http.StatusInternalServerError
}

// respondError logs err with request context and writes its coded JSON form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg, status := MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	respondErrorJSON(w, msg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
