package check

import (
	"context"
	"net"
	"testing"

	"pulsewatch/internals/modules/monitor"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// startSOAServer runs a local authoritative server for example.org so the
// SOA path is exercised without touching real resolvers.
func startSOAServer(t *testing.T) string {
	t.Helper()

	mux := dns.NewServeMux()
	mux.HandleFunc("example.org.", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		m.Answer = append(m.Answer, &dns.SOA{
			Hdr:     dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 300},
			Ns:      "ns1.example.org.",
			Mbox:    "hostmaster.example.org.",
			Serial:  2026082901,
			Refresh: 7200,
			Retry:   3600,
			Expire:  1209600,
			Minttl:  300,
		})
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSExecutor_SOALookup(t *testing.T) {
	exec := NewDNSExecutor()
	exec.serverAddr = startSOAServer(t)

	res := exec.Execute(context.Background(), monitor.Snapshot{
		Type:       monitor.TypeDNS,
		Target:     "example.org",
		RecordType: "SOA",
		TimeoutMS:  2000,
	})

	require.True(t, res.Success, res.Err)
	require.Contains(t, res.ResolvedValue, "ns1.example.org.")
}

func TestDNSExecutor_SOAExpectedValueMismatch(t *testing.T) {
	exec := NewDNSExecutor()
	exec.serverAddr = startSOAServer(t)

	res := exec.Execute(context.Background(), monitor.Snapshot{
		Type:          monitor.TypeDNS,
		Target:        "example.org",
		RecordType:    "SOA",
		ExpectedValue: "ns9.elsewhere.net",
		TimeoutMS:     2000,
	})

	require.False(t, res.Success)
	require.Contains(t, res.Err, "expected value")
}
