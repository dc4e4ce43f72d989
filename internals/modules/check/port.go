package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"pulsewatch/internals/modules/monitor"
)

type PortExecutor struct{}

func NewPortExecutor() *PortExecutor {
	return &PortExecutor{}
}

func (e *PortExecutor) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	addr := net.JoinHostPort(snap.Target, strconv.Itoa(snap.Port))

	if strings.EqualFold(snap.Protocol, "udp") {
		return e.probeUDP(addr, snap)
	}
	return e.probeTCP(addr, snap)
}

func (e *PortExecutor) probeTCP(addr string, snap monitor.Snapshot) Result {
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, snap.Timeout())
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return failure(latency, fmt.Sprintf("Port %d closed", snap.Port))
	}
	conn.Close()

	return Result{
		Success:    true,
		ResponseMS: latency,
	}
}

// probeUDP sends a datagram and waits for any reply. UDP gives no delivery
// guarantee, so a read timeout with no ICMP refusal counts as success; only
// an explicit refusal marks the port closed.
func (e *PortExecutor) probeUDP(addr string, snap monitor.Snapshot) Result {
	start := time.Now()

	conn, err := net.DialTimeout("udp", addr, snap.Timeout())
	if err != nil {
		return failure(time.Since(start).Milliseconds(), fmt.Sprintf("Port %d closed", snap.Port))
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(snap.Timeout()))

	if _, err := conn.Write([]byte("ping")); err != nil {
		return failure(time.Since(start).Milliseconds(), fmt.Sprintf("Port %d closed", snap.Port))
	}

	buf := make([]byte, 512)
	_, err = conn.Read(buf)
	latency := time.Since(start).Milliseconds()

	if err == nil {
		return Result{Success: true, ResponseMS: latency}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// no reply and no refusal, inconclusive counts as reachable
		return Result{Success: true, ResponseMS: latency}
	}

	return failure(latency, fmt.Sprintf("Port %d closed", snap.Port))
}
