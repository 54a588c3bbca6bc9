package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexZinkM/exam-admin/internal/errs"
	"github.com/AlexZinkM/exam-admin/internal/model"
)

var errSessionNotFound = errors.New("session not found")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.ErrorResponse{
		Error: errs.Message(err),
		Code:  string(errs.KindOf(err)),
	})
}

// writeBadRequest reports malformed input verbatim.
func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case errs.KindOperationInFlight, errs.KindNetworkMismatch:
		return http.StatusConflict
	case errs.KindUserRejected, errs.KindNoAccounts:
		return http.StatusForbidden
	case errs.KindWalletUnavailable, errs.KindServiceUnreachable:
		return http.StatusServiceUnavailable
	case errs.KindInitializationFailed, errs.KindTransactionFailed, errs.KindUploadFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
