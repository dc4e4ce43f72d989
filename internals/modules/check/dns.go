package check

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/miekg/dns"
)

type DNSExecutor struct {
	resolver *net.Resolver

	// SOA is not reachable through net.Resolver, so that record type goes
	// out as a raw query against the system's first nameserver
	client     *dns.Client
	serverAddr string
}

func NewDNSExecutor() *DNSExecutor {
	addr := "127.0.0.1:53"
	if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cfg.Servers) > 0 {
		addr = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	}

	return &DNSExecutor{
		resolver:   &net.Resolver{},
		client:     new(dns.Client),
		serverAddr: addr,
	}
}

func (e *DNSExecutor) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	start := time.Now()

	lookupCtx, cancel := context.WithTimeout(ctx, snap.Timeout())
	defer cancel()

	records, err := e.lookup(lookupCtx, snap)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return failure(latency, fmt.Sprintf("failed to resolve %s record for %s: %v", recordType(snap), snap.Target, err))
	}
	if len(records) == 0 {
		return failure(latency, fmt.Sprintf("no %s records found for %s", recordType(snap), snap.Target))
	}

	res := Result{
		ResponseMS:    latency,
		ResolvedValue: strings.Join(records, ", "),
	}

	if snap.ExpectedValue == "" {
		res.Success = true
		return res
	}

	expected := strings.ToLower(snap.ExpectedValue)
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec), expected) {
			res.Success = true
			return res
		}
	}

	res.Err = fmt.Sprintf("expected value %q not found in %s records", snap.ExpectedValue, recordType(snap))
	return res
}

func (e *DNSExecutor) lookup(ctx context.Context, snap monitor.Snapshot) ([]string, error) {
	switch recordType(snap) {
	case "A":
		ips, err := e.resolver.LookupIPAddr(ctx, snap.Target)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, ip := range ips {
			if ip.IP.To4() != nil {
				out = append(out, ip.IP.String())
			}
		}
		return out, nil

	case "AAAA":
		ips, err := e.resolver.LookupIPAddr(ctx, snap.Target)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, ip := range ips {
			if ip.IP.To4() == nil {
				out = append(out, ip.IP.String())
			}
		}
		return out, nil

	case "CNAME":
		cname, err := e.resolver.LookupCNAME(ctx, snap.Target)
		if err != nil {
			return nil, err
		}
		return []string{cname}, nil

	case "MX":
		mxs, err := e.resolver.LookupMX(ctx, snap.Target)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(mxs))
		for _, mx := range mxs {
			out = append(out, mx.Host)
		}
		return out, nil

	case "TXT":
		return e.resolver.LookupTXT(ctx, snap.Target)

	case "NS":
		nss, err := e.resolver.LookupNS(ctx, snap.Target)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(nss))
		for _, ns := range nss {
			out = append(out, ns.Host)
		}
		return out, nil

	case "SOA":
		return e.lookupSOA(ctx, snap.Target)

	default:
		return nil, fmt.Errorf("unsupported DNS record type %q", recordType(snap))
	}
}

func (e *DNSExecutor) lookupSOA(ctx context.Context, target string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(target), dns.TypeSOA)

	resp, _, err := e.client.ExchangeContext(ctx, msg, e.serverAddr)
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query returned %s", dns.RcodeToString[resp.Rcode])
	}

	var out []string
	for _, rr := range resp.Answer {
		if soa, ok := rr.(*dns.SOA); ok {
			out = append(out, fmt.Sprintf("%s %s %d", soa.Ns, soa.Mbox, soa.Serial))
		}
	}
	return out, nil
}

func recordType(snap monitor.Snapshot) string {
	rt := strings.ToUpper(snap.RecordType)
	if rt == "" {
		rt = "A"
	}
	return rt
}
