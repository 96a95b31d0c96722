package testutil

import (
	"context"
	"net"
	"sync"
	"testing"
)

func StartSingleAcceptServer(t *testing.T, ctx context.Context, handler func(net.Conn)) (net.Listener, func()) {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		handler(c)
	}()

	wait := func() {
		_ = ln.Close()
		wg.Wait()
	}
	t.Cleanup(wait)

	return ln, wait
}

// StartSilentServer accepts every connection and never writes. Each
// connection closed by the peer is reported on the returned channel.
func StartSilentServer(t *testing.T, ctx context.Context) (net.Listener, <-chan struct{}) {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	closed := make(chan struct{}, 1024)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var conns []net.Conn

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()

			wg.Add(1)
			go func() {
				defer wg.Done()
				buf := make([]byte, 64)
				for {
					if _, err := c.Read(buf); err != nil {
						select {
						case closed <- struct{}{}:
						default:
						}
						return
					}
				}
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		for _, c := range conns {
			_ = c.Close()
		}
		mu.Unlock()
		wg.Wait()
	})

	return ln, closed
}
