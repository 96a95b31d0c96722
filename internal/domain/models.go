package domain

import (
	"net"
	"strconv"
	"time"
)

// Endpoint is a named target reachable through the proxy.
type Endpoint struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Port    uint16 `json:"port" yaml:"port"`
}

// EndpointKey identifies an endpoint in the status store.
type EndpointKey struct {
	Address string
	Port    uint16
}

func (k EndpointKey) String() string {
	return net.JoinHostPort(k.Address, strconv.Itoa(int(k.Port)))
}

func (e Endpoint) Key() EndpointKey {
	return EndpointKey{Address: e.Address, Port: e.Port}
}

// EndpointRecord is the latest known state of one endpoint.
// LastCheck is nil until a probe of the endpoint has completed.
type EndpointRecord struct {
	Endpoint  Endpoint   `json:"endpoint"`
	Status    Status     `json:"status"`
	LastCheck *time.Time `json:"last_check"`
}

// UniqueEndpoints drops endpoints whose key repeats. A later duplicate
// replaces the earlier one but keeps its position.
func UniqueEndpoints(eps []Endpoint) []Endpoint {
	idx := make(map[EndpointKey]int, len(eps))
	out := make([]Endpoint, 0, len(eps))
	for _, ep := range eps {
		if i, ok := idx[ep.Key()]; ok {
			out[i] = ep
			continue
		}
		idx[ep.Key()] = len(out)
		out = append(out, ep)
	}
	return out
}
