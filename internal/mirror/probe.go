package mirror

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/BadgerOps/pipsync/internal/safety"
)

// Probe issues a GET against the candidate's probe path and reports whether
// it answered 200 within the probe timeout. Only the status code is used.
func (s *Selector) Probe(ctx context.Context, candidate string) ProbeResult {
	probeURL := ProbeURL(candidate, s.probePath)
	result := ProbeResult{URL: candidate, ProbeURL: probeURL}

	if _, err := safety.ValidateHTTPURL(probeURL); err != nil {
		result.Failure = FailureInvalidURL
		result.Error = err.Error()
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, probeURL, nil)
	if err != nil {
		result.Failure = FailureInvalidURL
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", "pipsync/1.0")

	start := time.Now()
	resp, err := s.client.Do(req)
	result.LatencyMs = int(time.Since(start).Milliseconds())

	if err != nil {
		result.Failure = classify(err)
		result.Error = err.Error()
		return result
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		result.Failure = FailureStatus
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return result
}

// ProbeAll probes every candidate in list order, one at a time, without
// stopping at the first available mirror.
func (s *Selector) ProbeAll(ctx context.Context, candidates []string) []ProbeResult {
	results := make([]ProbeResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, s.Probe(ctx, c))
	}
	return results
}

// ProbeURL joins the candidate base URL and the probe path, collapsing
// trailing slashes on the base.
func ProbeURL(candidate, probePath string) string {
	return strings.TrimRight(candidate, "/") + probePath
}

// TrustedHost returns the authority (host[:port]) of a mirror URL, or an
// empty string when it cannot be parsed.
func TrustedHost(mirrorURL string) string {
	u, err := url.Parse(mirrorURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func classify(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return FailureTimeout
		}
		return FailureDNS
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureRefused
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var authorityErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &authorityErr) || errors.As(err, &hostErr) {
		return FailureTLS
	}

	return FailureOther
}
