package testutil

import (
	"context"
	"io"
	"log"
	"net"
	"testing"

	gosocks5 "github.com/armon/go-socks5"
)

// StartSOCKS5Proxy runs an in-process no-auth SOCKS5 server. A nil rules
// value permits every CONNECT.
func StartSOCKS5Proxy(t *testing.T, ctx context.Context, rules gosocks5.RuleSet) net.Listener {
	t.Helper()

	if rules == nil {
		rules = gosocks5.PermitAll()
	}
	srv, err := gosocks5.New(&gosocks5.Config{
		Rules:  rules,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() { _ = srv.Serve(ln) }()
	return ln
}
