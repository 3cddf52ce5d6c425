package dns

import "strings"

const ownershipPrefix = "managed-by=yk-zone-sync,owner="

// OwnershipValue returns the TXT record content that marks a hostname as
// owned by the given owner ID. The marker is the sole basis for deciding
// that a record may be mutated or deleted.
func OwnershipValue(owner string) string {
	return ownershipPrefix + owner
}

// IsOwnershipValue reports whether a TXT content string is an ownership
// marker written by any yk-zone-sync instance.
func IsOwnershipValue(value string) bool {
	return strings.HasPrefix(value, ownershipPrefix)
}

// OwnedBy reports whether a TXT content string marks ownership by the
// given owner ID specifically.
func OwnedBy(value, owner string) bool {
	return value == OwnershipValue(owner)
}
