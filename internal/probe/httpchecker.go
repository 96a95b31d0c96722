package probe

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hamed0406/onionwatch/internal/domain"
)

// DialContextFunc matches net.Dialer.DialContext and socks5.Client.DialContext.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// HTTPChecker issues GET / to the endpoint over dial and treats 2xx/3xx as
// Online.
type HTTPChecker struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPChecker(dial DialContextFunc, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Timeout: timeout,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// The transport may keep dialing after the request gives up,
				// so every dial carries its own deadline.
				DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
					ctx, cancel := context.WithTimeout(ctx, timeout)
					defer cancel()
					return dial(ctx, network, address)
				},
				DisableKeepAlives: true,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch returns the status line of GET / on ep.
func (h *HTTPChecker) Fetch(ctx context.Context, ep domain.Endpoint) (int, string, error) {
	target := "http://" + net.JoinHostPort(ep.Address, strconv.Itoa(int(ep.Port))) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Proto + " " + resp.Status, nil
}

func (h *HTTPChecker) Check(ctx context.Context, ep domain.Endpoint) domain.Status {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	code, status, err := h.Fetch(ctx, ep)
	elapsed := time.Since(start)
	if err != nil {
		if timedOut(ctx, err) {
			return timeoutStatus(timeout)
		}
		return domain.Offline(err.Error())
	}
	if code < 200 || code >= 400 {
		return domain.Offline(status)
	}
	return domain.Online(elapsed.Milliseconds())
}
