// Package probe checks whether the form endpoint can be reached at all,
// independently of any submission.
package probe

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// MetricsSink records probe results.
type MetricsSink interface {
	ProbeCompleted(reachable bool, duration time.Duration)
}

type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Result of one connectivity check. Any HTTP response counts as reachable:
// the check is about the path to the endpoint, not its answer.
type Result struct {
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

type Prober struct {
	client   *http.Client
	endpoint string
	metrics  MetricsSink // optional, nil = disabled
	resolver Resolver
	proxy    func(*url.URL) (*url.URL, error)
	now      func() time.Time
}

func New(client *http.Client, endpoint string) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Prober{
		client:   client,
		endpoint: endpoint,
		resolver: net.DefaultResolver,
		proxy:    httpproxy.FromEnvironment().ProxyFunc(),
		now:      time.Now,
	}
}

func (p *Prober) WithMetrics(sink MetricsSink) *Prober {
	p.metrics = sink
	return p
}

// WithResolver replaces the DNS resolver used by Diagnose.
func (p *Prober) WithResolver(r Resolver) *Prober {
	p.resolver = r
	return p
}

// WithProxy replaces the proxy lookup used by Diagnose.
func (p *Prober) WithProxy(proxy func(*url.URL) (*url.URL, error)) *Prober {
	p.proxy = proxy
	return p
}

// Check sends GET endpoint?test=1, bypassing caches, and logs the result.
func (p *Prober) Check(ctx context.Context) Result {
	start := p.now()
	res := p.check(ctx)
	res.Latency = p.now().Sub(start)

	if p.metrics != nil {
		p.metrics.ProbeCompleted(res.Reachable, res.Latency)
	}
	if res.Reachable {
		log.Printf("probe: endpoint reachable status=%d latency=%s", res.StatusCode, res.Latency)
	} else {
		log.Printf("probe: endpoint unreachable err=%s", res.Error)
	}
	return res
}

func (p *Prober) check(ctx context.Context) Result {
	target, err := testURL(p.endpoint)
	if err != nil {
		return Result{Error: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return Result{Reachable: true, StatusCode: resp.StatusCode}
}

func testURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("test", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Restriction is an environment condition that may stop some delivery
// strategies from working.
type Restriction struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// Diagnose looks for environment restrictions and logs each one. It only
// informs; delivery always runs the full waterfall regardless.
func (p *Prober) Diagnose(ctx context.Context) []Restriction {
	var found []Restriction

	u, err := url.Parse(p.endpoint)
	if err != nil || u.Host == "" {
		found = append(found, Restriction{Name: "endpoint", Detail: fmt.Sprintf("cannot parse %q", p.endpoint)})
		return p.report(found)
	}

	if proxyURL, err := p.proxy(u); err != nil {
		found = append(found, Restriction{Name: "proxy", Detail: fmt.Sprintf("invalid proxy configuration: %v", err)})
	} else if proxyURL != nil {
		found = append(found, Restriction{Name: "proxy", Detail: "requests go through " + proxyURL.Redacted()})
	}

	if _, err := p.resolver.LookupHost(ctx, u.Hostname()); err != nil {
		found = append(found, Restriction{Name: "dns", Detail: fmt.Sprintf("cannot resolve %s: %v", u.Hostname(), err)})
	}

	return p.report(found)
}

func (p *Prober) report(found []Restriction) []Restriction {
	for _, r := range found {
		log.Printf("probe: restriction name=%s detail=%q", r.Name, r.Detail)
	}
	if len(found) == 0 {
		log.Printf("probe: no environment restrictions detected")
	}
	return found
}
