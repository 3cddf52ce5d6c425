package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

const defaultEndpoint = "https://api.cloudflare.com/client/v4"

func init() {
	dns.Register("cloudflare", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider against the Cloudflare v4 API.
type Provider struct {
	endpoint   string
	apiToken   string
	defaultTTL int
	client     *http.Client
	log        logr.Logger

	mu      sync.Mutex
	zoneIDs map[string]string // zone name → zone ID, resolved lazily
}

// New creates a Cloudflare DNS provider from the given settings map.
// Required settings: api_token.
// Optional settings: api_endpoint (default public v4 API), default_ttl
// (default 1, which Cloudflare treats as "automatic").
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	apiToken := settings["api_token"]
	if apiToken == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting 'api_token'")
	}

	endpoint := settings["api_endpoint"]
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	defaultTTL := 1
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid default_ttl %q: %w", v, err)
		}
		defaultTTL = parsed
	}

	return &Provider{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiToken:   apiToken,
		defaultTTL: defaultTTL,
		client:     &http.Client{},
		log:        log,
		zoneIDs:    make(map[string]string),
	}, nil
}

// envelope is the Cloudflare v4 response wrapper.
type envelope struct {
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result"`
	Errors     []apiError      `json:"errors"`
	ResultInfo *resultInfo     `json:"result_info"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

type zoneResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// recordBody is the wire shape of a DNS record.
type recordBody struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied *bool  `json:"proxied,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// doRequest builds and executes an HTTP request against the Cloudflare API,
// unwraps the response envelope, and maps failures to dns.ProviderError.
func (p *Provider) doRequest(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	url := p.endpoint + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &dns.ProviderError{
				StatusCode: resp.StatusCode,
				Op:         "cloudflare: " + method + " " + path,
				Message:    http.StatusText(resp.StatusCode),
			}
		}
		return nil, fmt.Errorf("cloudflare: decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		return nil, &dns.ProviderError{
			StatusCode: resp.StatusCode,
			Op:         "cloudflare: " + method + " " + path,
			Message:    formatErrors(env.Errors),
		}
	}
	return &env, nil
}

func formatErrors(errs []apiError) string {
	if len(errs) == 0 {
		return "unknown API error"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// zoneID resolves a zone name to its provider ID, caching the result.
func (p *Provider) zoneID(ctx context.Context, zone string) (string, error) {
	zone = dns.NormalizeHostname(zone)

	p.mu.Lock()
	id, ok := p.zoneIDs[zone]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	env, err := p.doRequest(ctx, http.MethodGet, "zones?name="+zone, nil)
	if err != nil {
		return "", err
	}
	var zones []zoneResult
	if err := json.Unmarshal(env.Result, &zones); err != nil {
		return "", fmt.Errorf("cloudflare: decode zones: %w", err)
	}
	for _, z := range zones {
		if dns.NormalizeHostname(z.Name) == zone {
			p.mu.Lock()
			p.zoneIDs[zone] = z.ID
			p.mu.Unlock()
			p.log.V(1).Info("resolved zone", "zone", zone, "id", z.ID)
			return z.ID, nil
		}
	}
	return "", fmt.Errorf("cloudflare: zone %q not found", zone)
}

func toRecord(rb recordBody) dns.Record {
	rec := dns.Record{
		ID:       rb.ID,
		Hostname: dns.NormalizeHostname(rb.Name),
		Type:     rb.Type,
		Value:    rb.Content,
		TTL:      rb.TTL,
	}
	if rb.Proxied != nil {
		rec.Proxied = *rb.Proxied
	}
	return rec
}

func (p *Provider) toBody(record dns.Record) recordBody {
	ttl := record.TTL
	if ttl == 0 {
		ttl = p.defaultTTL
	}
	rb := recordBody{
		Type:    record.Type,
		Name:    record.Hostname,
		Content: record.Value,
		TTL:     ttl,
	}
	if record.SupportsProxy() {
		proxied := record.Proxied
		rb.Proxied = &proxied
	}
	if record.Meta != nil {
		rb.Comment = record.Meta["comment"]
	}
	return rb
}

// List returns all DNS records in the zone, following pagination.
func (p *Provider) List(ctx context.Context, zone string) ([]dns.Record, error) {
	id, err := p.zoneID(ctx, zone)
	if err != nil {
		return nil, err
	}

	var records []dns.Record
	for page := 1; ; page++ {
		path := fmt.Sprintf("zones/%s/dns_records?page=%d&per_page=100", id, page)
		env, err := p.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		var rows []recordBody
		if err := json.Unmarshal(env.Result, &rows); err != nil {
			return nil, fmt.Errorf("cloudflare: decode records: %w", err)
		}
		for _, rb := range rows {
			records = append(records, toRecord(rb))
		}
		if env.ResultInfo == nil || env.ResultInfo.Page >= env.ResultInfo.TotalPages {
			break
		}
	}
	p.log.V(1).Info("listed records", "zone", zone, "count", len(records))
	return records, nil
}

// Create adds a new DNS record and returns the provider-assigned ID.
func (p *Provider) Create(ctx context.Context, zone string, record dns.Record) (string, error) {
	id, err := p.zoneID(ctx, zone)
	if err != nil {
		return "", err
	}

	env, err := p.doRequest(ctx, http.MethodPost, "zones/"+id+"/dns_records", p.toBody(record))
	if err != nil {
		return "", err
	}
	var created recordBody
	if err := json.Unmarshal(env.Result, &created); err != nil {
		return "", fmt.Errorf("cloudflare: decode created record: %w", err)
	}
	p.log.Info("created record", "hostname", record.Hostname, "type", record.Type, "value", record.Value, "id", created.ID)
	return created.ID, nil
}

// Update replaces an existing DNS record identified by the provider ID.
func (p *Provider) Update(ctx context.Context, zone string, recordID string, record dns.Record) error {
	id, err := p.zoneID(ctx, zone)
	if err != nil {
		return err
	}

	if _, err := p.doRequest(ctx, http.MethodPut, "zones/"+id+"/dns_records/"+recordID, p.toBody(record)); err != nil {
		return err
	}
	p.log.Info("updated record", "hostname", record.Hostname, "type", record.Type, "value", record.Value, "id", recordID)
	return nil
}

// Delete removes a DNS record by provider ID.
func (p *Provider) Delete(ctx context.Context, zone string, recordID string) error {
	id, err := p.zoneID(ctx, zone)
	if err != nil {
		return err
	}

	if _, err := p.doRequest(ctx, http.MethodDelete, "zones/"+id+"/dns_records/"+recordID, nil); err != nil {
		return err
	}
	p.log.Info("deleted record", "id", recordID)
	return nil
}
