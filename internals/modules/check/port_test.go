package check

import (
	"context"
	"net"
	"testing"

	"pulsewatch/internals/modules/monitor"

	"github.com/stretchr/testify/require"
)

func TestPortExecutor_TCPOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	res := NewPortExecutor().Execute(context.Background(), monitor.Snapshot{
		Type:      monitor.TypePort,
		Target:    "127.0.0.1",
		Port:      port,
		Protocol:  "tcp",
		TimeoutMS: 2000,
	})
	require.True(t, res.Success)
	require.Empty(t, res.Err)
}

func TestPortExecutor_TCPClosed(t *testing.T) {
	// bind then close to get a port that refuses connections
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	res := NewPortExecutor().Execute(context.Background(), monitor.Snapshot{
		Type:      monitor.TypePort,
		Target:    "127.0.0.1",
		Port:      port,
		Protocol:  "tcp",
		TimeoutMS: 2000,
	})
	require.False(t, res.Success)
	require.Contains(t, res.Err, "closed")
}

func TestPortExecutor_UDPTimeoutCountsAsReachable(t *testing.T) {
	// a UDP socket that never answers: no reply and no refusal is
	// inconclusive, which the executor reports as success
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	port := conn.LocalAddr().(*net.UDPAddr).Port

	res := NewPortExecutor().Execute(context.Background(), monitor.Snapshot{
		Type:      monitor.TypePort,
		Target:    "127.0.0.1",
		Port:      port,
		Protocol:  "udp",
		TimeoutMS: 300,
	})
	require.True(t, res.Success)
}
