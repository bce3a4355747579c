package healthcheck

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Prober periodically checks that the configured provider base URL is
// reachable. Purely observational: dispatches never consult it, they run
// their own failover. The /health endpoint surfaces the result.
type Prober struct {
	mu           sync.RWMutex
	baseURL      func() string
	endpoint     string
	interval     time.Duration
	timeout      time.Duration
	maxFailures  int
	failureCount int
	status       Status
	stopChan     chan struct{}
	running      bool
}

type Config struct {
	// BaseURL is read every tick so a hot-reloaded provider URL is probed
	// without a restart.
	BaseURL     func() string
	Endpoint    string        // Probe path (default: "/v1/models")
	Interval    time.Duration // How often to check (default: 30s)
	Timeout     time.Duration // Request timeout (default: 5s)
	MaxFailures int           // Failures before marking unreachable (default: 3)
}

func NewProber(cfg *Config) *Prober {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/v1/models"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}

	return &Prober{
		baseURL:     cfg.BaseURL,
		endpoint:    cfg.Endpoint,
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		status: Status{
			Reachable: true, // Assume reachable initially
			LastCheck: time.Now(),
		},
		stopChan: make(chan struct{}),
	}
}

// Begins periodic probes
func (p *Prober) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	log.Printf("Starting provider health probe (interval: %v)", p.interval)

	p.check()

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.check()
			case <-p.stopChan:
				return
			}
		}
	}()
}

// Stops the prober
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		close(p.stopChan)
		p.running = false
	}
}

func (p *Prober) check() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	url := strings.TrimRight(p.baseURL(), "/") + p.endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.recordFailure(url)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		p.recordFailure(url)
		return
	}
	defer resp.Body.Close()

	// Any response, 401 included, proves the provider is reachable; the
	// probe carries no credential.
	if resp.StatusCode < 500 {
		p.recordSuccess(url)
	} else {
		p.recordFailure(url)
	}
}

func (p *Prober) recordSuccess(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.LastCheck = time.Now()
	p.status.LastSuccess = time.Now()
	p.failureCount = 0

	if !p.status.Reachable {
		log.Printf("Provider %s is reachable again", url)
		p.status.Reachable = true
	}
}

func (p *Prober) recordFailure(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.LastCheck = time.Now()
	p.status.LastFailure = time.Now()
	p.failureCount++

	if p.status.Reachable && p.failureCount >= p.maxFailures {
		log.Printf("Provider %s is unreachable (failures: %d)", url, p.failureCount)
		p.status.Reachable = false
	}
}

// Returns a copy of the current probe status
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
