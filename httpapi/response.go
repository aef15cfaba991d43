package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendJSON writes a JSON response with the given status code.
func SendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// SendError writes an error response with the given status code, error code, and message.
func SendError(w http.ResponseWriter, status int, code, message string) {
	SendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// SendRunsheetError maps a controller error onto its HTTP status.
func SendRunsheetError(w http.ResponseWriter, err error) {
	code := runsheet.ErrorCode(err)
	SendError(w, statusFor(code), code, err.Error())
}

func statusFor(code string) int {
	switch code {
	case runsheet.CodeInvalidRequest:
		return http.StatusBadRequest
	case runsheet.CodeNotFound:
		return http.StatusNotFound
	case runsheet.CodeInvalidTransition:
		return http.StatusConflict
	case runsheet.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
