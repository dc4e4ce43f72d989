package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/rs/zerolog"
)

// keyword checks read at most this much of the response body
const maxBodyBytes = 512 * 1024

type HTTPExecutor struct {
	client *http.Client
	logger *zerolog.Logger
}

func NewHTTPExecutor(client *http.Client, logger *zerolog.Logger) *HTTPExecutor {
	return &HTTPExecutor{
		client: client,
		logger: logger,
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, snap.Timeout())
	defer cancel()

	method := snap.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if snap.RequestBody != "" {
		body = strings.NewReader(snap.RequestBody)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, snap.Target, body)
	if err != nil {
		return failure(0, fmt.Sprintf("invalid request: %v", err))
	}
	for k, v := range snap.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return failure(latency, describeNetError(err))
	}
	defer resp.Body.Close()

	res := Result{
		StatusCode: resp.StatusCode,
		ResponseMS: latency,
	}

	if snap.Type == monitor.TypeKeyword {
		e.evaluateKeyword(&res, resp.Body, snap)
	} else {
		// any completed response is non-exceptional, success is purely
		// a status code comparison
		expected := snap.ExpectedStatus
		if expected == 0 {
			expected = http.StatusOK
		}
		res.Success = resp.StatusCode == expected
		if !res.Success {
			res.Err = fmt.Sprintf("expected status %d, got %d", expected, resp.StatusCode)
		}
	}

	if snap.SSLCheck && strings.HasPrefix(strings.ToLower(snap.Target), "https://") {
		info, sslErr := probeCertificate(snap.Target, snap.Timeout(), time.Now())
		if sslErr != nil {
			e.logger.Warn().
				Str("monitor_id", snap.ID.String()).
				Err(sslErr).
				Msg("ssl certificate probe failed")
		} else {
			res.SSL = info
		}
	}

	return res
}

func (e *HTTPExecutor) evaluateKeyword(res *Result, body io.Reader, snap monitor.Snapshot) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		res.Success = false
		res.Err = fmt.Sprintf("reading response body: %v", err)
		return
	}

	found := strings.Contains(strings.ToLower(string(raw)), strings.ToLower(snap.Keyword))
	res.KeywordFound = found

	switch snap.KeywordMode {
	case "not_contains":
		res.Success = !found
		if found {
			res.Err = fmt.Sprintf("keyword %q found but should not be present", snap.Keyword)
		}
	default: // contains
		res.Success = found
		if !found {
			res.Err = fmt.Sprintf("keyword %q not found in response body", snap.Keyword)
		}
	}
}

func describeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("dns lookup failed: %v", dnsErr.Err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "network timeout"
	}

	return err.Error()
}
