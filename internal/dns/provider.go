package dns

import "context"

// Record types this system manages.
const (
	TypeA     = "A"
	TypeAAAA  = "AAAA"
	TypeCNAME = "CNAME"
	TypeTXT   = "TXT"
)

// Record represents a DNS record in the managed zone.
type Record struct {
	ID       string            // provider-assigned identifier, empty on desired records
	Hostname string            // FQDN, e.g. "app.example.com"
	Type     string            // "A", "AAAA", "CNAME", "TXT"
	Value    string            // IP address, target hostname, or TXT content
	TTL      int               // 0 = provider default
	Proxied  bool              // route through the provider's proxy (A/AAAA/CNAME only)
	Meta     map[string]string // provider-specific fields (e.g. "comment")
}

// SupportsProxy reports whether the record type can be proxied.
// The proxied flag is ignored for TXT records.
func (r Record) SupportsProxy() bool {
	switch r.Type {
	case TypeA, TypeAAAA, TypeCNAME:
		return true
	}
	return false
}

// Provider is the interface that DNS providers must implement.
// Errors carry transient/permanent classification via ProviderError.
type Provider interface {
	List(ctx context.Context, zone string) ([]Record, error)
	Create(ctx context.Context, zone string, record Record) (string, error)
	Update(ctx context.Context, zone string, id string, record Record) error
	Delete(ctx context.Context, zone string, id string) error
}
