package mirror

// Failure classes reported for an unavailable mirror. Every class is treated
// the same way by Select; the distinction only shows up in logs and in the
// mirrors table.
const (
	FailureNone       = ""
	FailureInvalidURL = "invalid-url"
	FailureDNS        = "dns"
	FailureRefused    = "refused"
	FailureTimeout    = "timeout"
	FailureTLS        = "tls"
	FailureStatus     = "status"
	FailureOther      = "other"
)

// ProbeResult holds the outcome of a single mirror reachability probe.
type ProbeResult struct {
	URL        string `json:"url"`
	ProbeURL   string `json:"probe_url"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMs  int    `json:"latency_ms"`
	Failure    string `json:"failure,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Available reports whether the mirror answered the probe with 200 OK.
func (r ProbeResult) Available() bool {
	return r.Failure == FailureNone
}

// Selected is the mirror chosen for a run together with the host that has
// to be passed to pip as trusted.
type Selected struct {
	URL         string `json:"url"`
	TrustedHost string `json:"trusted_host"`
}

// NewSelected derives the trusted host from url.
func NewSelected(url string) Selected {
	return Selected{URL: url, TrustedHost: TrustedHost(url)}
}
