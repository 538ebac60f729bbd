package miners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crypto-ticker-core/models"
)

const (
	// pollTimeout bounds a single miner query; a slow miner is dropped for
	// the cycle, never awaited past this.
	pollTimeout = 4 * time.Second

	userAgent = "crypto-ticker-core/1.0"
)

// Sink receives per-miner readings and the end-of-cycle commit.
type Sink interface {
	ApplyMinerReading(models.MinerReading)
	CommitMinerCycle()
}

// systemInfo is the subset of the BitAxe/NerdQaxe system info payload the
// poller consumes. hashRate is reported in GH/s.
type systemInfo struct {
	HashRate float64 `json:"hashRate"`
	BestDiff float64 `json:"bestDiff"`
}

// Poller queries every configured miner once per cycle. Each miner is
// polled on its own goroutine so an unreachable one never delays the rest.
type Poller struct {
	ips    []string
	client *http.Client
	sink   Sink
	log    *zap.Logger
}

// NewPoller returns a poller over the configured miner IPs. An empty list
// yields a poller whose cycles are no-ops (the subsystem is hidden).
func NewPoller(ips []string, sink Sink, log *zap.Logger) *Poller {
	return &Poller{
		ips:    ips,
		client: &http.Client{Timeout: pollTimeout},
		sink:   sink,
		log:    log,
	}
}

// Name identifies the poller to the worker manager.
func (p *Poller) Name() string { return "miners" }

// Run executes one poll cycle: all miners concurrently, then one commit so
// the hashrate history advances once per cycle.
func (p *Poller) Run(ctx context.Context) {
	if len(p.ips) == 0 {
		return
	}

	cycle := uuid.NewString()[:8]
	log := p.log.With(zap.String("cycle", cycle))

	var wg sync.WaitGroup
	for _, ip := range p.ips {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			p.sink.ApplyMinerReading(p.poll(ctx, ip, log))
		}(ip)
	}
	wg.Wait()

	p.sink.CommitMinerCycle()
}

// poll queries one miner. Any failure (timeout, refused connection,
// unparseable payload) yields an unreachable reading; the sink keeps the
// miner's last known values for display decay.
func (p *Poller) poll(ctx context.Context, ip string, log *zap.Logger) models.MinerReading {
	info, err := p.fetchSystemInfo(ctx, ip)
	if err != nil {
		log.Debug("miner unreachable", zap.String("host", ip), zap.Error(err))
		return models.MinerReading{Host: ip, Reachable: false}
	}

	return models.MinerReading{
		Host:           ip,
		HashrateTH:     info.HashRate / 1000.0, // GH/s -> TH/s
		BestDifficulty: info.BestDiff,
		LastSeen:       time.Now(),
		Reachable:      true,
	}
}

func (p *Poller) fetchSystemInfo(ctx context.Context, ip string) (*systemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/api/system/info", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", ip, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying miner %s: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("miner %s returned %s", ip, resp.Status)
	}

	var info systemInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding system info from %s: %w", ip, err)
	}
	return &info, nil
}
