package dns

import (
	"strings"
)

// NormalizeHostname lowercases an FQDN and strips the trailing dot, so
// "WWW.Example.Com." and "www.example.com" compare equal.
func NormalizeHostname(hostname string) string {
	return strings.ToLower(strings.TrimSuffix(hostname, "."))
}

// InZone reports whether a hostname falls under the given zone.
// The zone apex itself is in scope.
func InZone(hostname, zone string) bool {
	hostname = NormalizeHostname(hostname)
	zone = NormalizeHostname(zone)
	if zone == "" {
		return false
	}
	return hostname == zone || strings.HasSuffix(hostname, "."+zone)
}
