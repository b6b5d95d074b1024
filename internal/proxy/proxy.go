package proxy

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

const directID = "direct"

// Proxy is one egress resource. The zero value is not valid; use New or Direct.
type Proxy struct {
	Host   string
	Port   int
	direct bool
}

// New returns a proxy for host:port.
func New(host string, port int) Proxy {
	return Proxy{Host: host, Port: port}
}

// Direct returns the resource that connects without a proxy.
func Direct() Proxy {
	return Proxy{direct: true}
}

// IsDirect reports whether p is the direct connection.
func (p Proxy) IsDirect() bool {
	return p.direct
}

// ID is the stable identity used for failure counting and eviction.
func (p Proxy) ID() string {
	if p.direct {
		return directID
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p Proxy) String() string {
	return p.ID()
}

// URL returns the proxy-server URL browsers expect, or "" for Direct.
func (p Proxy) URL() string {
	if p.direct {
		return ""
	}
	return "http://" + p.ID()
}

// Parse reads "ip:port". The host must be a literal IP address.
func Parse(value string) (Proxy, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Proxy{}, fmt.Errorf("empty proxy entry")
	}
	addrPort, err := netip.ParseAddrPort(value)
	if err != nil {
		return Proxy{}, fmt.Errorf("parse proxy %q: %w", value, err)
	}
	if addrPort.Port() == 0 {
		return Proxy{}, fmt.Errorf("parse proxy %q: port must be non-zero", value)
	}
	return New(addrPort.Addr().Unmap().String(), int(addrPort.Port())), nil
}

type wireProxy struct {
	IP   string          `json:"ip"`
	Port json.RawMessage `json:"port"`
}

// MarshalJSON encodes the cache representation {"ip": ..., "port": ...}.
func (p Proxy) MarshalJSON() ([]byte, error) {
	if p.direct {
		return nil, fmt.Errorf("direct connection is not serializable")
	}
	return json.Marshal(struct {
		IP   string `json:"ip"`
		Port int    `json:"port"`
	}{p.Host, p.Port})
}

// UnmarshalJSON accepts the port as a number or a numeric string.
func (p *Proxy) UnmarshalJSON(data []byte) error {
	var wire wireProxy
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	raw := strings.Trim(strings.TrimSpace(string(wire.Port)), `"`)
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("proxy %q: invalid port %s", wire.IP, string(wire.Port))
	}
	host := strings.TrimSpace(wire.IP)
	if _, err := netip.ParseAddr(host); err != nil {
		return fmt.Errorf("proxy %q: %w", host, err)
	}
	*p = New(host, port)
	return nil
}
