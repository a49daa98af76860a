package redisclient

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseURI accepts "host", "host:port" and "redis://host[:port]" and
// returns the normalized "host:port" form, filling in defaultPort when the
// input carries none.
func ParseURI(raw string, defaultPort int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("redisclient: empty URI")
	}
	raw = strings.TrimPrefix(raw, "redis://")

	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		// No ":" present, SplitHostPort fails; treat the whole thing as host.
		host = raw
		portStr = ""
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("redisclient: URI %q has no host", raw)
	}

	port := defaultPort
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", fmt.Errorf("redisclient: URI %q has invalid port: %w", raw, err)
		}
		port = p
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// Canonicalize rewrites uri to the form reported by topology, so that
// equality comparisons against NodeInfo.Addr succeed. If no topology entry
// shares the URI's host, the normalized-but-unmatched form is returned
// (this is the expected path for nodes being added that aren't members
// yet).
func Canonicalize(topology []NodeInfo, uri string, defaultPort int) (string, error) {
	normalized, err := ParseURI(uri, defaultPort)
	if err != nil {
		return "", err
	}
	for _, n := range topology {
		if n.Addr == normalized {
			return n.Addr, nil
		}
	}

	host, _, err := net.SplitHostPort(normalized)
	if err != nil {
		return normalized, nil
	}
	for _, n := range topology {
		nh, _, err := net.SplitHostPort(n.Addr)
		if err != nil {
			continue
		}
		if nh == host {
			return n.Addr, nil
		}
	}
	return normalized, nil
}
