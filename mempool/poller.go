package mempool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"crypto-ticker-core/models"
)

const (
	defaultBaseURL = "https://mempool.space"
	requestTimeout = 15 * time.Second
	userAgent      = "crypto-ticker-core/1.0"
)

// Sink receives a network stats record after a fully successful cycle.
type Sink interface {
	SetNetworkStats(models.NetworkStats)
}

// Poller fetches Bitcoin network statistics from a mempool.space-compatible
// API. A failed cycle leaves the previously stored record untouched; the
// staleness logic, not the poller, decides when the data is too old.
type Poller struct {
	baseURL string
	client  *http.Client
	sink    Sink
	log     *zap.Logger
}

// NewPoller returns a poller against the public mempool.space API.
func NewPoller(sink Sink, log *zap.Logger) *Poller {
	return &Poller{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
		sink:    sink,
		log:     log,
	}
}

// Name identifies the poller to the worker manager.
func (p *Poller) Name() string { return "mempool" }

// Run executes one poll cycle. Errors are logged and absorbed; the next
// scheduled cycle is the retry.
func (p *Poller) Run(ctx context.Context) {
	stats, err := p.fetch(ctx)
	if err != nil {
		p.log.Warn("network stats fetch failed", zap.Error(err))
		return
	}
	p.sink.SetNetworkStats(stats)
}

// fetch walks the API: recommended fee, tip height, tip block (mining pool
// and difficulty), then the 3-month network hashrate. Any missing piece
// fails the whole cycle so a partially populated record is never written.
func (p *Poller) fetch(ctx context.Context) (models.NetworkStats, error) {
	var stats models.NetworkStats

	var fees struct {
		HalfHourFee float64 `json:"halfHourFee"`
	}
	if err := p.getJSON(ctx, "/api/v1/fees/precise", &fees); err != nil {
		return stats, fmt.Errorf("fetching fees: %w", err)
	}

	heightText, err := p.getText(ctx, "/api/blocks/tip/height")
	if err != nil {
		return stats, fmt.Errorf("fetching tip height: %w", err)
	}
	height, err := strconv.ParseInt(heightText, 10, 64)
	if err != nil {
		return stats, fmt.Errorf("parsing tip height %q: %w", heightText, err)
	}

	blockHash, err := p.getText(ctx, fmt.Sprintf("/api/block-height/%d", height))
	if err != nil {
		return stats, fmt.Errorf("fetching block hash: %w", err)
	}

	var block struct {
		Difficulty float64 `json:"difficulty"`
		Extras     struct {
			Pool struct {
				Name string `json:"name"`
			} `json:"pool"`
		} `json:"extras"`
	}
	if err := p.getJSON(ctx, "/api/v1/block/"+blockHash, &block); err != nil {
		return stats, fmt.Errorf("fetching block %s: %w", blockHash, err)
	}

	var hashrate struct {
		CurrentHashrate float64 `json:"currentHashrate"`
	}
	if err := p.getJSON(ctx, "/api/v1/mining/hashrate/3m", &hashrate); err != nil {
		return stats, fmt.Errorf("fetching network hashrate: %w", err)
	}

	pool := block.Extras.Pool.Name
	if pool == "" {
		pool = "Unknown"
	}

	stats = models.NetworkStats{
		FeeSatVB:    fees.HalfHourFee,
		BlockHeight: height,
		MiningPool:  pool,
		HashrateEH:  hashrate.CurrentHashrate / 1e18,
		Difficulty:  block.Difficulty,
		ObservedAt:  time.Now(),
	}
	return stats, nil
}

func (p *Poller) getJSON(ctx context.Context, path string, v any) error {
	body, err := p.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (p *Poller) getText(ctx context.Context, path string) (string, error) {
	body, err := p.get(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (p *Poller) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request %s: %w", path, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
