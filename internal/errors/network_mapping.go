package errors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// MapNetworkError classifies a transport failure. Code is one of
// timeout, canceled, connection_refused, connection_reset, dns_error, tls_error, network_error.
func MapNetworkError(err error) *APIError {
	code, msg := classifyNetwork(err)
	return New(KindTransport, 0, code, msg).WithCause(err)
}

// IsCanceled reports whether err comes from context cancellation rather than the network.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func classifyNetwork(err error) (string, string) {
	if err == nil {
		return "network_error", "Network error"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled", "Request was canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", "Request timed out"
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return "timeout", "Request timed out"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns_error", "Server could not be resolved"
	}

	s := err.Error()
	switch {
	case strings.Contains(s, "connection refused"):
		return "connection_refused", "Server is unreachable"
	case strings.Contains(s, "connection reset") || strings.Contains(s, "broken pipe") || strings.Contains(s, "EOF"):
		return "connection_reset", "Connection was interrupted"
	case strings.Contains(s, "no such host"):
		return "dns_error", "Server could not be resolved"
	case strings.Contains(s, "certificate") || strings.Contains(s, "tls"):
		return "tls_error", "Secure connection failed"
	case strings.Contains(s, "timeout"):
		return "timeout", "Request timed out"
	default:
		return "network_error", "Network error"
	}
}
