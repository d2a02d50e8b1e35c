package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/alvarorichard/kaistream/internal/service"
	"github.com/alvarorichard/kaistream/internal/util"
)

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Warn("Failed to encode response", "error", err)
	}
}

func ok(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func success(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// fail maps err to a response: caller mistakes are 400 with the reason,
// everything else is 500 with the route's generic message
func fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if service.IsInvalidInput(err) {
		badRequest(w, err.Error())
		return
	}
	util.Error(msg, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
}
