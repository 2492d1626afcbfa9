package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// APIErrorDetail is one machine-readable error in an API response. Code
// identifies the failure class ("queue_full", "unsupported_format", ...) so
// clients can switch on it without parsing Detail.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse is the envelope every enhancement endpoint reports
// failures through.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes an error response in the standard envelope with the
// given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	body := APIErrorResponse{
		Errors: []APIErrorDetail{{
			Code:   code,
			Status: strconv.Itoa(httpStatus),
			Detail: detail,
		}},
	}
	_ = json.NewEncoder(w).Encode(body)
}
