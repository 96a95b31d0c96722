// Package socks5 implements the client half of the SOCKS5 protocol that
// onionwatch needs to reach endpoints through a proxy such as Tor.
//
// Only the "no authentication" method and the CONNECT command are
// supported. Requests are encoded with the wire types from
// github.com/txthinking/socks5; replies are decoded here so that every
// failure maps onto one of the errors in errors.go and a non-success reply
// code is reported before the bound address is read.
package socks5
