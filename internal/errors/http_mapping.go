package errors

import (
	"fmt"
	"net/http"
	"strings"

	"fuelcoach-go/internal/constants"
	"github.com/tidwall/gjson"
)

// MapHTTPError maps a non-2xx status and its body to an APIError.
// 401 handling is the caller's job; this only describes the response.
func MapHTTPError(statusCode int, body []byte) *APIError {
	detail := extractDetail(body)

	var e *APIError
	switch statusCode {
	case http.StatusBadRequest:
		e = New(KindApplication, statusCode, "invalid_request", "Invalid request")
	case http.StatusUnauthorized:
		return Unauthorized(body)
	case http.StatusForbidden:
		e = New(KindApplication, statusCode, "permission_denied", "Permission denied")
	case http.StatusNotFound:
		e = New(KindApplication, statusCode, "not_found", "Resource not found")
	case http.StatusConflict:
		e = New(KindConflict, statusCode, "conflict", "Already exists")
	case http.StatusUnprocessableEntity:
		e = New(KindApplication, statusCode, "unprocessable", "Request could not be processed")
	case http.StatusTooManyRequests:
		e = New(KindApplication, statusCode, "rate_limited", "Too many requests")
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e = New(KindApplication, statusCode, "unavailable", "Service temporarily unavailable")
	default:
		e = New(KindApplication, statusCode, "http_error", fmt.Sprintf("HTTP %d error", statusCode))
	}
	e.Detail = detail
	e.Body = body
	return e
}

// extractDetail pulls a readable message out of the API's error envelopes:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"error": {"message": "..."}}, {"message": "..."}.
func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if gjson.ValidBytes(body) {
		for _, path := range []string{"detail", "detail.0.msg", "error.message", "error", "message"} {
			v := gjson.GetBytes(body, path)
			if v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > constants.MaxErrorDetailLength {
		return msg[:constants.MaxErrorDetailLength] + "..."
	}
	return msg
}
