// Package ipchecker extracts client IP addresses from HTTP requests and
// restricts handlers to a trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates client addresses against an optional trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for trustedSubnet in CIDR notation
// (e.g. "192.168.1.0/24"). An empty string yields a checker that trusts
// nobody.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{
			trustedSubnet: nil,
		}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: parse trusted subnet %q: %w", trustedSubnet, err)
	}
	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether clientIP belongs to the trusted subnet. It is always
// false when no subnet is configured.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address from an HTTP request,
// checking in order: the "X-Real-IP" header, the "X-Forwarded-For" header,
// and finally the request's RemoteAddr field.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: split remote address %q: %w", request.RemoteAddr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("ipchecker: remote address %q is not an IP", request.RemoteAddr)
	}
	return ip, nil
}

// ClientKey returns the client IP as a string, falling back to RemoteAddr.
// It is used to key per-client state such as rate limits.
func (checker *IPChecker) ClientKey(request *http.Request) string {
	ip, err := checker.GetClientIP(request)
	if err != nil {
		return request.RemoteAddr
	}
	return ip.String()
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// Guard lets only trusted clients reach next; everybody else is answered by
// reject.
func (checker *IPChecker) Guard(reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := checker.GetClientIP(r)
			if err != nil || !checker.Check(ip) {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
