package socks5

import (
	"errors"
	"net"
)

var (
	// ErrAuthenticationFailed is returned when the proxy does not select
	// the "no authentication" method.
	ErrAuthenticationFailed = errors.New("SOCKS5 authentication failed")

	// ErrInvalidResponse is returned for a bad version byte or an
	// unrecognized bound address type.
	ErrInvalidResponse = errors.New("invalid SOCKS5 response")

	// ErrUnsupportedAddressType is returned for domain names longer than
	// 255 bytes. Nothing is sent to the proxy in that case.
	ErrUnsupportedAddressType = errors.New("unsupported address type")
)

// ConnectionFailedError reports a non-success CONNECT reply.
type ConnectionFailedError struct {
	Code   byte
	Reason string
}

func (e *ConnectionFailedError) Error() string {
	return "SOCKS5 connection failed: " + e.Reason
}

// IOError wraps a transport failure talking to the proxy.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiring.
func (e *IOError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ReplyReason returns the human-readable reason for a reply code.
func ReplyReason(code byte) string {
	switch code {
	case 0x01:
		return "General SOCKS server failure"
	case 0x02:
		return "Connection not allowed by ruleset"
	case 0x03:
		return "Network unreachable"
	case 0x04:
		return "Host unreachable"
	case 0x05:
		return "Connection refused"
	case 0x06:
		return "TTL expired"
	case 0x07:
		return "Command not supported"
	case 0x08:
		return "Address type not supported"
	default:
		return "Unknown error"
	}
}
