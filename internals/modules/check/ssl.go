package check

import (
	"crypto/tls"
	"errors"
	"math"
	"net"
	"net/url"
	"time"
)

// probeCertificate opens its own TLS connection (no redirects involved) and
// extracts the leaf certificate expiry. It only ever populates metadata,
// never the success flag of a check.
func probeCertificate(target string, timeout time.Duration, now time.Time) (*SSLInfo, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	if host == "" {
		host = target
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), &tls.Config{
		ServerName: host,
	})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, errors.New("no peer certificates presented")
	}

	notAfter := certs[0].NotAfter
	days := int(math.Ceil(notAfter.Sub(now).Hours() / 24))

	return &SSLInfo{
		NotAfter:      notAfter,
		DaysRemaining: days,
	}, nil
}
