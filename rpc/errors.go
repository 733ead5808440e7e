package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentacar/core"
	"rentacar/native/bank"
	"rentacar/native/rentacar"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Code  uint32 `json:"code"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

var statusByError = []struct {
	err    error
	status int
}{
	{rentacar.ErrUnauthorized, http.StatusUnauthorized},
	{core.ErrNonceReplay, http.StatusUnauthorized},
	{core.ErrNoSigners, http.StatusUnauthorized},
	{ErrMissingSignature, http.StatusUnauthorized},
	{ErrBadSignature, http.StatusUnauthorized},
	{ErrDuplicateSigner, http.StatusUnauthorized},

	{rentacar.ErrCarNotFound, http.StatusNotFound},
	{rentacar.ErrRentalNotFound, http.StatusNotFound},
	{rentacar.ErrNotInitialized, http.StatusNotFound},

	{rentacar.ErrAlreadyInitialized, http.StatusConflict},
	{rentacar.ErrCarAlreadyExists, http.StatusConflict},
	{rentacar.ErrCarAlreadyRented, http.StatusConflict},
	{rentacar.ErrCarNotReturned, http.StatusConflict},
	{rentacar.ErrCarNotRented, http.StatusConflict},
	{rentacar.ErrCarRented, http.StatusConflict},
	{rentacar.ErrOutstandingBalance, http.StatusConflict},
	{rentacar.ErrInsufficientBalance, http.StatusConflict},
	{bank.ErrInsufficientFunds, http.StatusConflict},

	{rentacar.ErrInvalidAmount, http.StatusBadRequest},
	{rentacar.ErrInvalidCommissionAmount, http.StatusBadRequest},
	{rentacar.ErrRentalDurationZero, http.StatusBadRequest},
	{rentacar.ErrSelfRentalNotAllowed, http.StatusBadRequest},
	{rentacar.ErrAdminTokenConflict, http.StatusBadRequest},
	{rentacar.ErrOverflow, http.StatusBadRequest},
	{rentacar.ErrUnderflow, http.StatusBadRequest},
	{rentacar.ErrInvalidAddress, http.StatusBadRequest},
	{ErrUnknownMethod, http.StatusBadRequest},
	{errInvalidParams, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{
		Code:  rentacar.ErrorCode(err),
		Name:  rentacar.ErrorName(err),
		Error: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}
