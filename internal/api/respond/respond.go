// Package respond writes JSON envelopes for the HTTP API.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

type envelope struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

func OK(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusOK, envelope{Result: result})
}

func Created(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusCreated, envelope{Result: result})
}

// Accepted reports work taken on for asynchronous processing.
func Accepted(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusAccepted, envelope{Result: result})
}

func Fail(w http.ResponseWriter, status int, err error) {
	JSON(w, status, envelope{Error: err.Error()})
}
