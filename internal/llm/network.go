package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultProbeTimeout    = 5 * time.Second
	defaultMonitorInterval = 10 * time.Second
)

// Checker answers the two network questions asked before any remote call.
type Checker interface {
	// IsNetworkAvailable reports the monitor's last observation without blocking.
	IsNetworkAvailable() bool
	// CheckConnectivity probes url with a HEAD request.
	CheckConnectivity(ctx context.Context, url string) error
}

// NetworkChecker tracks whether any usable network interface is up. One
// background goroutine writes the flag; any number of callers read it.
type NetworkChecker struct {
	httpClient *http.Client
	logger     *slog.Logger
	interfaces func() ([]net.Interface, error)
	stopCh     chan struct{}
	interval   time.Duration
	available  atomic.Bool
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NetworkCheckerOption customizes a NetworkChecker.
type NetworkCheckerOption func(*NetworkChecker)

// WithMonitorInterval sets how often interfaces are re-examined.
func WithMonitorInterval(d time.Duration) NetworkCheckerOption {
	return func(n *NetworkChecker) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(l *slog.Logger) NetworkCheckerOption {
	return func(n *NetworkChecker) { n.logger = l }
}

// NewNetworkChecker creates a checker. The flag starts optimistic and is
// refreshed immediately so callers that never Start still get a real answer.
func NewNetworkChecker(opts ...NetworkCheckerOption) *NetworkChecker {
	n := &NetworkChecker{
		httpClient: &http.Client{Timeout: defaultProbeTimeout},
		interfaces: net.Interfaces,
		interval:   defaultMonitorInterval,
		stopCh:     make(chan struct{}),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.available.Store(true)
	n.refresh()
	return n
}

// Start runs the monitor until ctx is done or Stop is called.
func (n *NetworkChecker) Start(ctx context.Context) {
	n.startOnce.Do(func() {
		go n.monitor(ctx)
	})
}

// Stop ends the monitor goroutine.
func (n *NetworkChecker) Stop() {
	n.stopOnce.Do(func() { close(n.stopCh) })
}

func (n *NetworkChecker) monitor(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.refresh()
		}
	}
}

func (n *NetworkChecker) refresh() {
	up := hasUsableInterface(n.interfaces)
	if prev := n.available.Swap(up); prev != up {
		n.logger.Info("Network availability changed", "available", up)
	}
}

// IsNetworkAvailable implements Checker.
func (n *NetworkChecker) IsNetworkAvailable() bool {
	return n.available.Load()
}

// CheckConnectivity implements Checker. A 2xx or 404 response counts as
// reachable; the probe only cares that something answered.
func (n *NetworkChecker) CheckConnectivity(ctx context.Context, url string) error {
	if !n.IsNetworkAvailable() {
		return ErrNetworkUnavailable
	}
	return probe(ctx, n.httpClient, url)
}

func hasUsableInterface(list func() ([]net.Interface, error)) bool {
	ifaces, err := list()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return true
	}
	return false
}

func probe(ctx context.Context, client *http.Client, url string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return newError(KindInvalidEndpoint, url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return newError(KindNetworkUnavailable, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return newError(KindNetworkUnavailable, fmt.Sprintf("probe %s returned status %d", url, resp.StatusCode), nil)
}
