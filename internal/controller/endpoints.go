package controller

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// Annotations understood on watched resources.
const (
	hostnameAnnotation = "dns.yk/hostname"
	targetAnnotation   = "dns.yk/target"
	ttlAnnotation      = "dns.yk/ttl"
	proxiedAnnotation  = "dns.yk/proxied"
)

// recordOpts carries per-resource record options parsed from annotations.
type recordOpts struct {
	ttl     int
	proxied bool
}

// parseRecordOpts reads TTL and proxied options from annotations.
// Unparsable values are logged and ignored; they never abort the
// resource's other records.
func parseRecordOpts(log logr.Logger, annotations map[string]string) recordOpts {
	var opts recordOpts
	if v, ok := annotations[ttlAnnotation]; ok {
		ttl, err := strconv.Atoi(v)
		if err != nil || ttl < 0 {
			log.Info("ignoring unparsable TTL annotation", "value", v)
		} else {
			opts.ttl = ttl
		}
	}
	if v, ok := annotations[proxiedAnnotation]; ok {
		proxied, err := strconv.ParseBool(v)
		if err != nil {
			log.Info("ignoring unparsable proxied annotation", "value", v)
		} else {
			opts.proxied = proxied
		}
	}
	return opts
}

// annotationHostnames splits the comma-separated hostname annotation.
func annotationHostnames(annotations map[string]string) []string {
	v, ok := annotations[hostnameAnnotation]
	if !ok {
		return nil
	}
	var hostnames []string
	for _, h := range strings.Split(v, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hostnames = append(hostnames, h)
		}
	}
	return hostnames
}

// recordForTarget builds the desired record for a hostname pointing at a
// target. The record type follows the target: IPv4 → A, IPv6 → AAAA,
// anything else → CNAME.
func recordForTarget(hostname, target string, opts recordOpts) dns.Record {
	typ := dns.TypeCNAME
	if ip := net.ParseIP(target); ip != nil {
		if ip.To4() != nil {
			typ = dns.TypeA
		} else {
			typ = dns.TypeAAAA
		}
	}
	return dns.Record{
		Hostname: hostname,
		Type:     typ,
		Value:    target,
		TTL:      opts.ttl,
		Proxied:  opts.proxied,
	}
}
