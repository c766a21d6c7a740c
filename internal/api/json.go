package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/schema"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// ValidationResponse is the 422 body carrying frontmatter schema issues.
type ValidationResponse struct {
	Error  string         `json:"error" validate:"required"`
	Issues []schema.Issue `json:"issues" validate:"required"`
}

func validationBody(verr *docservice.ValidationError) ValidationResponse {
	return ValidationResponse{
		Error:  "frontmatter validation failed",
		Issues: verr.Issues,
	}
}
