package logging

// ErrorKind normalizes call outcomes for logs/metrics.
// It maps HTTP status codes and presence of error to a short string label.
func ErrorKind(status int, hasErr bool) string {
	if hasErr && status == 0 {
		return "network_error"
	}
	switch {
	case status == 401:
		return "http_401"
	case status == 409:
		return "http_409"
	case status >= 500 && status < 600:
		return "http_5xx"
	case status >= 400 && status < 500:
		return "http_4xx"
	}
	if hasErr {
		return "error"
	}
	return "ok"
}
