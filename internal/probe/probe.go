package probe

import (
	"context"
	"net"

	"github.com/hamed0406/onionwatch/internal/domain"
)

// Checker performs a single reachability check for an endpoint. It never
// fails: every problem is folded into an Offline status.
type Checker interface {
	Check(ctx context.Context, ep domain.Endpoint) domain.Status
}

// Connector opens a proxied connection. *socks5.Client satisfies it.
type Connector interface {
	Connect(ctx context.Context, host string, port uint16) (net.Conn, error)
}
