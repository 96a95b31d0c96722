// Command cli opens connections through a SOCKS5 proxy and reports the
// outcome of each, optionally issuing an HTTP request over the tunnel.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/hamed0406/onionwatch/internal/socks5"
)

var defaultTargets = []string{
	"httpbin.org:80",
	"8.8.8.8:53",
	"example.com:80",
	"robosatsy56bwqn56qyadmcxkx767hnabg4mihxlmgyt6if5gnuxvzad.onion:80",
}

func main() {
	_ = godotenv.Load()

	proxyDefault := os.Getenv("ONIONWATCH_PROXY")
	if proxyDefault == "" {
		proxyDefault = "127.0.0.1:9050"
	}
	var (
		proxyAddr = pflag.StringP("proxy", "p", proxyDefault, "SOCKS5 proxy address host:port")
		timeout   = pflag.DurationP("timeout", "t", 10*time.Second, "Per-target timeout")
		doHTTP    = pflag.Bool("http", false, "Send GET / over each connection and print the status line")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [host:port ...]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	targets := pflag.Args()
	if len(targets) == 0 {
		targets = defaultTargets
	}

	fmt.Printf("SOCKS5 connect test via %s (no authentication)\n", *proxyAddr)
	client := socks5.NewClient(*proxyAddr)

	failed := 0
	for i, target := range targets {
		fmt.Printf("\n=== %d: %s ===\n", i+1, target)
		if err := probeTarget(client, target, *timeout, *doHTTP); err != nil {
			fmt.Println("✗", err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d targets failed\n", failed, len(targets))
		os.Exit(1)
	}
}

func probeTarget(client *socks5.Client, target string, timeout time.Duration, doHTTP bool) error {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return fmt.Errorf("bad target %q: %w", target, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("bad port in %q", target)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	conn, err := client.Connect(ctx, host, uint16(port))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()
	fmt.Printf("✓ connected to %s in %dms\n", target, time.Since(start).Milliseconds())

	if !doHTTP {
		return nil
	}

	_ = conn.SetDeadline(time.Now().Add(timeout))
	req, _ := http.NewRequest(http.MethodGet, "http://"+target+"/", nil)
	req.Close = true
	if err := req.Write(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	resp.Body.Close()
	fmt.Printf("✓ HTTP %s %s\n", resp.Proto, resp.Status)
	return nil
}
