package socks5

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	socksVersion byte = 0x05
	maxDomainLen      = 255
)

// ContextDialer opens the transport connection to the proxy. *net.Dialer
// satisfies it.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client opens proxied TCP connections through the SOCKS5 proxy at
// ProxyAddr.
type Client struct {
	ProxyAddr string
	Forward   ContextDialer
}

func NewClient(proxyAddr string) *Client {
	return &Client{ProxyAddr: proxyAddr, Forward: &net.Dialer{}}
}

// Connect dials the proxy and asks it to CONNECT to host:port. The returned
// connection is positioned at the first byte of application data.
//
// The deadline of ctx, if any, bounds the whole handshake. Cancelling ctx
// aborts a handshake in progress.
func (c *Client) Connect(ctx context.Context, host string, port uint16) (net.Conn, error) {
	req, err := newConnectRequest(host, port)
	if err != nil {
		return nil, err
	}

	conn, err := c.Forward.DialContext(ctx, "tcp", c.ProxyAddr)
	if err != nil {
		return nil, &IOError{Op: "dial proxy", Err: err}
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	err = handshake(conn, req)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

// Ping dials the proxy and runs method negotiation only, confirming that a
// no-auth SOCKS5 server is listening.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.Forward.DialContext(ctx, "tcp", c.ProxyAddr)
	if err != nil {
		return &IOError{Op: "dial proxy", Err: err}
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	return negotiate(conn)
}

// DialContext lets a Client stand in for a dialer, e.g. in an
// http.Transport. Only tcp networks are supported.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks5 dial %s %s: unsupported network", network, address)
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("socks5 dial %s: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("socks5 dial %s: invalid port: %w", address, err)
	}
	return c.Connect(ctx, host, uint16(port))
}

// Handshake runs method negotiation and CONNECT over an already
// established connection to the proxy.
func Handshake(conn net.Conn, host string, port uint16) error {
	req, err := newConnectRequest(host, port)
	if err != nil {
		return err
	}
	return handshake(conn, req)
}

func handshake(conn net.Conn, req *txsocks5.Request) error {
	if err := negotiate(conn); err != nil {
		return err
	}
	return connect(conn, req)
}

func negotiate(conn net.Conn) error {
	if _, err := txsocks5.NewNegotiationRequest([]byte{txsocks5.MethodNone}).WriteTo(conn); err != nil {
		return &IOError{Op: "write negotiation", Err: err}
	}

	var rep [2]byte
	if _, err := io.ReadFull(conn, rep[:]); err != nil {
		return &IOError{Op: "read negotiation", Err: err}
	}
	if rep[0] != socksVersion {
		return ErrInvalidResponse
	}
	if rep[1] != txsocks5.MethodNone {
		return ErrAuthenticationFailed
	}
	return nil
}

func connect(conn net.Conn, req *txsocks5.Request) error {
	if _, err := req.WriteTo(conn); err != nil {
		return &IOError{Op: "write request", Err: err}
	}

	// ver, rep, rsv, atyp
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return &IOError{Op: "read reply", Err: err}
	}
	if hdr[0] != socksVersion {
		return ErrInvalidResponse
	}
	if hdr[1] != txsocks5.RepSuccess {
		return &ConnectionFailedError{Code: hdr[1], Reason: ReplyReason(hdr[1])}
	}
	return discardBoundAddr(conn, hdr[3])
}

// discardBoundAddr consumes BND.ADDR and BND.PORT.
func discardBoundAddr(r io.Reader, atyp byte) error {
	var n int64
	switch atyp {
	case txsocks5.ATYPIPv4:
		n = net.IPv4len + 2
	case txsocks5.ATYPIPv6:
		n = net.IPv6len + 2
	case txsocks5.ATYPDomain:
		var l [1]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return &IOError{Op: "read bound address", Err: err}
		}
		n = int64(l[0]) + 2
	default:
		return ErrInvalidResponse
	}

	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return &IOError{Op: "read bound address", Err: err}
	}
	return nil
}

// newConnectRequest encodes the CONNECT request for host:port. It is built
// before anything touches the network so an unencodable host never causes
// a write.
func newConnectRequest(host string, port uint16) (*txsocks5.Request, error) {
	var (
		atyp byte
		addr []byte
	)
	ip, err := netip.ParseAddr(host)
	switch {
	case err == nil && ip.Zone() == "" && ip.Is4():
		b := ip.As4()
		atyp, addr = txsocks5.ATYPIPv4, b[:]
	case err == nil && ip.Zone() == "" && ip.Is6():
		b := ip.As16()
		atyp, addr = txsocks5.ATYPIPv6, b[:]
	default:
		if len(host) > maxDomainLen {
			return nil, ErrUnsupportedAddressType
		}
		atyp, addr = txsocks5.ATYPDomain, []byte(host)
	}

	p := make([]byte, 2)
	binary.BigEndian.PutUint16(p, port)
	return txsocks5.NewRequest(txsocks5.CmdConnect, atyp, addr, p), nil
}
