package check

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"pulsewatch/internals/modules/monitor"
)

// Raw ICMP needs elevated privileges, so reachability is approximated by
// attempting TCP connects against a fixed ordered list of common ports.
var pingPorts = []int{443, 80, 22}

type PingExecutor struct {
	resolver *net.Resolver
}

func NewPingExecutor() *PingExecutor {
	return &PingExecutor{
		resolver: &net.Resolver{},
	}
}

func (e *PingExecutor) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	start := time.Now()
	deadline := start.Add(snap.Timeout())

	lookupCtx, cancel := context.WithTimeout(ctx, snap.Timeout())
	defer cancel()

	ips, err := e.resolver.LookupIPAddr(lookupCtx, snap.Target)
	if err != nil || len(ips) == 0 {
		return failure(time.Since(start).Milliseconds(), fmt.Sprintf("host %s not found", snap.Target))
	}
	host := ips[0].IP.String()

	for _, port := range pingPorts {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), remaining)
		if err == nil {
			conn.Close()
			return Result{
				Success:       true,
				ResponseMS:    time.Since(start).Milliseconds(),
				ResolvedValue: host,
			}
		}
	}

	return failure(time.Since(start).Milliseconds(), fmt.Sprintf("host %s unreachable on ports 443, 80, 22", snap.Target))
}
