package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/hamed0406/onionwatch/internal/domain"
	"github.com/hamed0406/onionwatch/internal/socks5"
)

const DefaultTimeout = 10 * time.Second

// SOCKSChecker reports an endpoint Online when a CONNECT through the proxy
// succeeds within Timeout. The connection is closed straight away.
type SOCKSChecker struct {
	Connector Connector
	Timeout   time.Duration
}

func NewSOCKSChecker(proxyAddr string, timeout time.Duration) *SOCKSChecker {
	return &SOCKSChecker{
		Connector: socks5.NewClient(proxyAddr),
		Timeout:   timeout,
	}
}

type connectResult struct {
	conn net.Conn
	err  error
}

func (c *SOCKSChecker) Check(ctx context.Context, ep domain.Endpoint) domain.Status {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan connectResult, 1)
	start := time.Now()
	go func() {
		conn, err := c.Connector.Connect(ctx, ep.Address, ep.Port)
		done <- connectResult{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		elapsed := time.Since(start)
		if r.err != nil {
			if timedOut(ctx, r.err) {
				return timeoutStatus(timeout)
			}
			return domain.Offline(r.err.Error())
		}
		_ = r.conn.Close()
		return domain.Online(elapsed.Milliseconds())
	case <-ctx.Done():
		// The connector may still hand back a connection after we gave up.
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutStatus(timeout)
		}
		return domain.Offline(ctx.Err().Error())
	}
}

// timedOut reports whether err comes from the check deadline. The socket
// deadline and the context deadline are the same instant, so either may be
// observed first.
func timedOut(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func timeoutStatus(timeout time.Duration) domain.Status {
	return domain.Offline("Connection timeout (" + strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64) + "s)")
}
