package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config contains every runtime knob of the aggregation core. Values come
// from config.json with safe defaults for anything missing, and can be
// overridden through TICKER_* environment variables (a .env file is loaded
// first if present).
type Config struct {
	MainSymbols    []string
	MarqueeSymbols []string

	CandleSeconds int
	MaxCandles    int

	MarqueeRefreshInterval time.Duration
	RotationInterval       time.Duration
	MinerPollInterval      time.Duration
	MempoolPollInterval    time.Duration
	DataTimeout            time.Duration

	MinersIPs            []string
	MinerActiveThreshold float64

	PriceDecimals map[string]int
	KrakenPairs   map[string]string
	CoinGeckoIDs  map[string]string

	LogLevel string
}

// Load reads path (a JSON file) and returns the resulting configuration.
// A missing or unreadable file is not fatal: defaults are returned together
// with the read error so the caller can log it and carry on.
func Load(path string) (*Config, error) {
	// Pick up a .env file before viper reads the environment.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("TICKER")
	v.AutomaticEnv()

	readErr := v.ReadInConfig()
	if readErr != nil {
		readErr = fmt.Errorf("reading %s: %w", path, readErr)
	}

	cfg := &Config{
		MainSymbols:            v.GetStringSlice("main_symbols"),
		MarqueeSymbols:         v.GetStringSlice("marquee_symbols"),
		CandleSeconds:          v.GetInt("candle_seconds"),
		MaxCandles:             v.GetInt("max_candles"),
		MarqueeRefreshInterval: secondsDuration(v.GetFloat64("marquee_refresh_interval")),
		RotationInterval:       secondsDuration(v.GetFloat64("rotation_interval")),
		MinerPollInterval:      secondsDuration(v.GetFloat64("miner_poll_interval")),
		MempoolPollInterval:    secondsDuration(v.GetFloat64("mempool_poll_interval")),
		DataTimeout:            secondsDuration(v.GetFloat64("data_timeout")),
		MinersIPs:              v.GetStringSlice("miners_ips"),
		MinerActiveThreshold:   v.GetFloat64("miner_active_threshold"),
		PriceDecimals:          intMap(v.GetStringMap("price_decimals"), v),
		KrakenPairs:            v.GetStringMapString("kraken_pairs"),
		CoinGeckoIDs:           v.GetStringMapString("coingecko_ids"),
		LogLevel:               v.GetString("log_level"),
	}
	cfg.sanitize()

	return cfg, readErr
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("main_symbols", []string{"BTCUSDT"})
	v.SetDefault("marquee_symbols", []string{
		"ETHUSDT", "BNBUSDT", "XMRUSDT", "SOLUSDT", "LTCUSDT",
		"XRPUSDT", "ADAUSDT", "TRXUSDT", "MEUSDT", "HBARUSDT", "ESXUSD",
		"XECUSDT", "RUNECOIN",
	})
	v.SetDefault("candle_seconds", 60)
	v.SetDefault("max_candles", 14)
	v.SetDefault("marquee_refresh_interval", 8.0)
	v.SetDefault("rotation_interval", 21.0)
	v.SetDefault("miner_poll_interval", 15.0)
	v.SetDefault("mempool_poll_interval", 25.0)
	v.SetDefault("data_timeout", 300.0)
	v.SetDefault("miners_ips", []string{})
	v.SetDefault("miner_active_threshold", 0.25)
	v.SetDefault("price_decimals", map[string]any{
		"xecusdt": 8, "xecusdc": 8, "esxusd": 6, "runecoin": 8,
	})
	v.SetDefault("kraken_pairs", map[string]string{
		"xmrusdt": "XMR/USDT", "esxusd": "ESX/USD",
	})
	v.SetDefault("coingecko_ids", map[string]string{"runecoin": "runecoin"})
	v.SetDefault("log_level", "info")
}

// sanitize replaces out-of-range values with defaults so a bad config key
// degrades one feature instead of failing the process.
func (c *Config) sanitize() {
	if len(c.MainSymbols) == 0 {
		c.MainSymbols = []string{"BTCUSDT"}
	}
	if c.CandleSeconds <= 0 {
		c.CandleSeconds = 60
	}
	if c.MaxCandles <= 0 {
		c.MaxCandles = 14
	}
	if c.MarqueeRefreshInterval <= 0 {
		c.MarqueeRefreshInterval = 8 * time.Second
	}
	if c.RotationInterval <= 0 {
		c.RotationInterval = 21 * time.Second
	}
	if c.MinerPollInterval <= 0 {
		c.MinerPollInterval = 15 * time.Second
	}
	if c.MempoolPollInterval <= 0 {
		c.MempoolPollInterval = 25 * time.Second
	}
	if c.DataTimeout <= 0 {
		c.DataTimeout = 300 * time.Second
	}
	if c.MinerActiveThreshold < 0 {
		c.MinerActiveThreshold = 0.25
	}
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func intMap(raw map[string]any, v *viper.Viper) map[string]int {
	out := make(map[string]int, len(raw))
	for key := range raw {
		out[key] = v.GetInt("price_decimals." + key)
	}
	return out
}
