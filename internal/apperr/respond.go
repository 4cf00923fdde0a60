package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondErrorWithCode writes the public part of an error. devErr, when
// given, is only logged.
func RespondErrorWithCode(w http.ResponseWriter, status int, code, publicMessage string, details any, devErrs ...error) {
	WriteJSON(w, status, ErrorResponse{Code: code, Message: publicMessage, Details: details})

	if len(devErrs) > 0 && devErrs[0] != nil {
		entry := logging.For("http").WithFields(logrus.Fields{
			"status": status,
			"code":   code,
			"error":  devErrs[0].Error(),
		})
		if status >= http.StatusInternalServerError {
			entry.Error(publicMessage)
		} else {
			entry.Warn(publicMessage)
		}
	}
}

// Respond writes err as an AppError response.
func Respond(w http.ResponseWriter, err error) {
	e := As(err)
	RespondErrorWithCode(w, e.StatusCode, e.Code, e.Message, nil, e.Err)
}
