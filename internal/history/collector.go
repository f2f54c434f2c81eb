package history

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

// AlertCreator is the slice of the lifecycle manager the collector
// needs to raise threshold alerts.
type AlertCreator interface {
	CreateAlert(ctx context.Context, title, message string, severity int, source string, metadata models.Metadata) (string, error)
}

// ProbeConfig describes one HTTP availability probe.
type ProbeConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // default: 10s
}

// Thresholds are evaluated by the collector after recording; crossing
// one creates an alert through the lifecycle manager.
type Thresholds struct {
	// ResponseTimeMS alerts when a probe responds slower than this.
	// Default: 5000. Negative disables.
	ResponseTimeMS float64 `yaml:"response_time_ms"`
	// DatabaseSizeMB alerts when the database file grows past this.
	// Default: 1024. Negative disables.
	DatabaseSizeMB float64 `yaml:"database_size_mb"`
}

// CollectorConfig configures a collection run.
type CollectorConfig struct {
	Probes       []ProbeConfig `yaml:"probes"`
	Thresholds   Thresholds    `yaml:"thresholds"`
	DatabasePath string        `yaml:"-"`
	// Concurrency bounds parallel probes. Default: 4.
	Concurrency int `yaml:"concurrency"`
}

// SetDefaults applies default values for missing configuration.
func (c *CollectorConfig) SetDefaults() {
	if c.Thresholds.ResponseTimeMS == 0 {
		c.Thresholds.ResponseTimeMS = 5000
	}
	if c.Thresholds.DatabaseSizeMB == 0 {
		c.Thresholds.DatabaseSizeMB = 1024
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Collector runs the periodic metrics collection: it probes services,
// records samples through the aggregator and evaluates thresholds. The
// aggregator itself stays policy-free.
type Collector struct {
	aggregator *Aggregator
	alerts     AlertCreator
	config     CollectorConfig
}

// NewCollector creates a collector.
func NewCollector(aggregator *Aggregator, alerts AlertCreator, config CollectorConfig) *Collector {
	config.SetDefaults()
	return &Collector{
		aggregator: aggregator,
		alerts:     alerts,
		config:     config,
	}
}

// Run performs one collection pass. Probe failures are recorded as
// down availability samples, not returned as errors; only storage
// problems fail the run.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.probeServices(ctx); err != nil {
		return err
	}
	c.collectRuntime(ctx)
	c.collectDatabaseSize(ctx)
	return nil
}

func (c *Collector) probeServices(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)

	for _, probe := range c.config.Probes {
		probe := probe // per-iteration copy: go directive is below 1.22
		g.Go(func() error {
			return c.probeOne(gctx, probe)
		})
	}
	return g.Wait()
}

func (c *Collector) probeOne(ctx context.Context, probe ProbeConfig) error {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: timeout / 2}).DialContext,
		},
	}

	start := time.Now()
	up := true
	probeErr := ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.URL, nil)
	if err != nil {
		return fmt.Errorf("probe %s: build request: %w", probe.Name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		up = false
		probeErr = err.Error()
	} else {
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			up = false
			probeErr = fmt.Sprintf("status %d", resp.StatusCode)
		}
	}
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	var responseTime *float64
	if up {
		responseTime = &elapsed
	}
	if err := c.aggregator.RecordAvailability(ctx, probe.Name, up, responseTime, probeErr); err != nil {
		return err
	}

	switch {
	case !up:
		c.raise(ctx, fmt.Sprintf("Service down: %s", probe.Name),
			fmt.Sprintf("availability probe of %s failed: %s", probe.URL, probeErr),
			4, models.Metadata{
				"service": models.String(probe.Name),
				"url":     models.String(probe.URL),
			})
	case c.config.Thresholds.ResponseTimeMS > 0 && elapsed > c.config.Thresholds.ResponseTimeMS:
		c.raise(ctx, fmt.Sprintf("Slow response: %s", probe.Name),
			fmt.Sprintf("%s responded in %.0fms (threshold %.0fms)",
				probe.Name, elapsed, c.config.Thresholds.ResponseTimeMS),
			3, models.Metadata{
				"service":          models.String(probe.Name),
				"response_time_ms": models.Float(elapsed),
			})
	}
	return nil
}

func (c *Collector) collectRuntime(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.record(ctx, "runtime_heap_alloc", float64(mem.HeapAlloc), "bytes")
	c.record(ctx, "runtime_goroutines", float64(runtime.NumGoroutine()), "")
}

func (c *Collector) collectDatabaseSize(ctx context.Context) {
	if c.config.DatabasePath == "" {
		return
	}
	info, err := os.Stat(c.config.DatabasePath)
	if err != nil {
		log.Printf("collector: stat database: %v", err)
		return
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	c.record(ctx, "database_size", sizeMB, "MB")

	if c.config.Thresholds.DatabaseSizeMB > 0 && sizeMB > c.config.Thresholds.DatabaseSizeMB {
		c.raise(ctx, "Database size threshold exceeded",
			fmt.Sprintf("database file is %.1fMB (threshold %.1fMB); check retention settings",
				sizeMB, c.config.Thresholds.DatabaseSizeMB),
			4, models.Metadata{
				"size_mb": models.Float(sizeMB),
			})
	}
}

func (c *Collector) record(ctx context.Context, metric string, value float64, unit string) {
	if err := c.aggregator.RecordSample(ctx, metric, value, unit, "collector"); err != nil {
		log.Printf("collector: record %s: %v", metric, err)
	}
}

func (c *Collector) raise(ctx context.Context, title, message string, severity int, metadata models.Metadata) {
	if c.alerts == nil {
		return
	}
	if _, err := c.alerts.CreateAlert(ctx, title, message, severity, "monitoring", metadata); err != nil {
		log.Printf("collector: create alert %q: %v", title, err)
	}
}
