package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ResolveAddr builds the host:port a bidder dials, rejecting hostnames
// when noDNS is set.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if noDNS && net.ParseIP(host) == nil {
		return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with --no-dns)", host)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// ListenAddr returns the address the auctioneer binds.  An empty host
// binds every interface.
func ListenAddr(host string, port int) string {
	if host == "" {
		return ":" + strconv.Itoa(port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitHostPort parses "host[:port]", falling back to defPort when the
// port is omitted.
func SplitHostPort(hostport string, defPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port present: the whole string is the host.
		if net.ParseIP(hostport) != nil || !strings.Contains(hostport, ":") {
			return hostport, defPort, nil
		}
		return "", 0, fmt.Errorf("invalid address %q: %w", hostport, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in %q", portStr, hostport)
	}
	return host, port, nil
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
