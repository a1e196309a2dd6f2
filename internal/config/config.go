package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// FEWS holds the web service connection settings shared by the exporter and the CLI.
type FEWS struct {
	APIURL       string
	Token        string
	Authenticate bool
	VerifySSL    bool
	Timeout      time.Duration
	RateLimit    float64 // requests per second, 0 disables limiting
	CacheSize    int     // 0 disables the time-series cache
}

// Config holds all exporter settings, populated from environment variables.
type Config struct {
	FEWS FEWS

	LocationIDs  []string
	ParameterIDs []string
	PollInterval time.Duration
	Lookback     time.Duration

	KafkaBrokers    []string
	KafkaSinkTopic  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// LoadFEWS reads only the FEWS_* connection settings.
func LoadFEWS() (*FEWS, error) {
	apiURL := strings.TrimSpace(os.Getenv("FEWS_API_URL"))
	if apiURL == "" {
		return nil, errors.New("FEWS_API_URL is required")
	}
	if u, err := url.Parse(apiURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid FEWS_API_URL %q", apiURL)
	}

	timeout, err := parsePositiveDuration("FEWS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("FEWS_RATE_LIMIT", "5"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid FEWS_RATE_LIMIT")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("FEWS_CACHE_SIZE", "128"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid FEWS_CACHE_SIZE")
	}

	verifySSL, err := parseBool("FEWS_VERIFY_SSL", true)
	if err != nil {
		return nil, err
	}

	token := os.Getenv("FEWS_TOKEN")
	authenticate, err := parseBool("FEWS_AUTHENTICATE", token != "")
	if err != nil {
		return nil, err
	}
	if authenticate && token == "" {
		return nil, errors.New("FEWS_AUTHENTICATE is true but FEWS_TOKEN is not set")
	}

	return &FEWS{
		APIURL:       apiURL,
		Token:        token,
		Authenticate: authenticate,
		VerifySSL:    verifySSL,
		Timeout:      timeout,
		RateLimit:    rateLimit,
		CacheSize:    cacheSize,
	}, nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fews, err := LoadFEWS()
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	lookback, err := parsePositiveDuration("LOOKBACK", "24h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FEWS:            *fews,
		LocationIDs:     splitList(os.Getenv("FEWS_LOCATION_IDS")),
		ParameterIDs:    splitList(os.Getenv("FEWS_PARAMETER_IDS")),
		PollInterval:    pollInterval,
		Lookback:        lookback,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "fews-timeseries"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if len(cfg.ParameterIDs) == 0 && len(cfg.LocationIDs) == 0 {
		return nil, errors.New("FEWS_PARAMETER_IDS or FEWS_LOCATION_IDS is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
