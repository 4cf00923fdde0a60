package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-hotel-console/internal/apperr"
	"github.com/ariefcatur/go-hotel-console/internal/console"
	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/gateway"
	"github.com/ariefcatur/go-hotel-console/internal/pricing"
)

type partialWriteDetails struct {
	Completed string `json:"completed"`
	Failed    string `json:"failed"`
}

// respondErr maps core errors onto HTTP responses. Order matters: a
// partial write wraps the store error of its second write.
func respondErr(w http.ResponseWriter, err error) {
	var (
		appErr     *apperr.AppError
		partial    *gateway.PartialWriteError
		invalid    *gateway.ValidationError
		transition *gateway.TransitionError
	)
	switch {
	case errors.As(err, &appErr):
		apperr.RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	case errors.As(err, &partial):
		apperr.RespondErrorWithCode(w, http.StatusInternalServerError, apperr.CodePartialWrite,
			"Command was only partially applied",
			partialWriteDetails{Completed: partial.Completed, Failed: partial.Failed}, err)
	case errors.As(err, &invalid):
		apperr.RespondErrorWithCode(w, http.StatusBadRequest, apperr.CodeValidation, invalid.Error(), invalid.Problems)
	case errors.Is(err, pricing.ErrEmptyStay):
		apperr.RespondErrorWithCode(w, http.StatusBadRequest, apperr.CodeValidation, err.Error(), nil)
	case errors.Is(err, gateway.ErrUnknownKind):
		apperr.RespondErrorWithCode(w, http.StatusBadRequest, apperr.CodeInvalidPayload, err.Error(), nil)
	case errors.As(err, &transition), errors.Is(err, gateway.ErrRoomInUse):
		apperr.RespondErrorWithCode(w, http.StatusConflict, apperr.CodeConflict, err.Error(), nil)
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, console.ErrUnknownRoom):
		apperr.RespondErrorWithCode(w, http.StatusNotFound, apperr.CodeNotFound, err.Error(), nil)
	case errors.Is(err, docstore.ErrPermissionDenied):
		apperr.RespondErrorWithCode(w, http.StatusForbidden, apperr.CodeForbidden, "Permission denied", nil, err)
	case errors.Is(err, docstore.ErrClosed), errors.Is(err, context.DeadlineExceeded):
		apperr.RespondErrorWithCode(w, http.StatusServiceUnavailable, apperr.CodeUnavailable, "Service unavailable", nil, err)
	default:
		apperr.Respond(w, err)
	}
}
