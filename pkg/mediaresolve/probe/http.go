// Package probe implements reachability checks against candidate URIs.
// Probes are cheap: a HEAD request (or a zero-length range GET where HEAD
// is rejected), never a full download.
package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 4 * time.Second

// HTTPConfig options for the HTTP prober
type HTTPConfig struct {
	Timeout time.Duration // per-probe timeout (default: DefaultTimeout)
	Client  *http.Client  // optional custom client
}

// HTTPProber probes http(s) URIs with conditional HEAD requests.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTP creates an HTTP prober
func NewHTTP(cfg HTTPConfig) *HTTPProber {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProber{client: client, timeout: cfg.Timeout}
}

// Probe checks the URI with a HEAD request. Servers that reject HEAD get
// a single zero-length range GET instead. Timeouts are reported as
// ReasonTimeout so callers can retry them on a different policy than
// explicit not-found responses.
func (p *HTTPProber) Probe(ctx context.Context, uri string) (*mediaresolve.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.do(ctx, http.MethodHead, uri)
	if err != nil {
		return classifyTransportError(err), nil
	}
	res.Body.Close()

	if res.StatusCode == http.StatusMethodNotAllowed {
		res, err = p.do(ctx, http.MethodGet, uri)
		if err != nil {
			return classifyTransportError(err), nil
		}
		res.Body.Close()
	}

	return classifyResponse(res), nil
}

func (p *HTTPProber) do(ctx context.Context, method, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	return p.client.Do(req)
}

func classifyResponse(res *http.Response) *mediaresolve.ProbeResult {
	switch {
	case res.StatusCode == http.StatusOK || res.StatusCode == http.StatusPartialContent:
		return &mediaresolve.ProbeResult{
			Reachable:             true,
			SizeBytes:             sizeOf(res),
			ContentType:           res.Header.Get("Content-Type"),
			SupportsRangeRequests: supportsRanges(res),
		}
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonNotFound}
	default:
		return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonError}
	}
}

func classifyTransportError(err error) *mediaresolve.ProbeResult {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonTimeout}
	}
	return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonError}
}

func sizeOf(res *http.Response) int64 {
	if res.StatusCode == http.StatusPartialContent {
		// Total size is after the slash in Content-Range: bytes 0-0/12345.
		cr := res.Header.Get("Content-Range")
		if i := strings.LastIndex(cr, "/"); i >= 0 {
			var n int64
			for _, r := range cr[i+1:] {
				if r < '0' || r > '9' {
					return 0
				}
				n = n*10 + int64(r-'0')
			}
			return n
		}
		return 0
	}
	if res.ContentLength > 0 {
		return res.ContentLength
	}
	return 0
}

func supportsRanges(res *http.Response) bool {
	if res.StatusCode == http.StatusPartialContent {
		return true
	}
	return strings.EqualFold(res.Header.Get("Accept-Ranges"), "bytes")
}
