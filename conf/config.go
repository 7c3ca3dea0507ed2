package conf

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var (
	Path string
	Port int

	global *Config
)

func G() *Config {
	if global == nil {
		panic("configuration not loaded")
	}

	return global
}

func ReplaceGlobals(cfg *Config) {
	global = cfg
}

func LoadEnv(cli *cli.Context) error {
	path := cli.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = homeDir + "/.kylaris"
	}

	Path = path
	Port = cli.Int("port")
	return nil
}

func LoadConfig() (*Config, error) {
	f, err := os.Open(Path + "/config.yaml")
	if err != nil {
		f, err = os.Open(Path + "/config.example.yaml")
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	r := NewEnvExpandedReader(f)

	var cfg *Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, errors.New("empty configuration")
	}

	cfg.setDefaults()
	return cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Name == "" {
		cfg.Name = "kylaris"
	}

	if cfg.Binance.BaseURL == "" {
		cfg.Binance = DefaultBinance()
	}

	if cfg.Review.Location == nil {
		cfg.Review = DefaultReview()
	}

	if cfg.EventBus.Topic == "" {
		cfg.EventBus.Topic = "trading"
	}

	if cfg.Persistence.Name == "" {
		cfg.Persistence.Name = cfg.Name
	}

	if cfg.Persistence.Host == "" {
		cfg.Persistence.Host = Path
	}
}

type Config struct {
	Name        string      `yaml:"name"`
	BaseURL     string      `yaml:"baseUrl"`
	JWT         JWT         `yaml:"jwt"`
	Persistence Persistence `yaml:"persistence"`
	EventBus    EventBus    `yaml:"eventBus"`
	Binance     Binance     `yaml:"binance"`
	Review      Review      `yaml:"review"`
}

type JWT struct {
	Privkey   ed25519.PrivateKey
	Timeout   time.Duration
	Audiences []string
}

func (cfg *JWT) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Privkey   string
		Timeout   string
		Audiences []string
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	// no key leaves token signing disabled
	if raw.Privkey != "" {
		priv, err := base64.StdEncoding.DecodeString(raw.Privkey)
		if err != nil {
			return err
		}

		if len(priv) != ed25519.PrivateKeySize {
			return errors.New("invalid ed25519 private key length")
		}

		cfg.Privkey = ed25519.PrivateKey(priv)
	}

	timeout, err := parseDuration(raw.Timeout, 24*time.Hour)
	if err != nil {
		return err
	}

	cfg.Timeout = timeout

	cfg.Audiences = raw.Audiences
	if len(cfg.Audiences) == 0 {
		return errors.New("jwt audience required")
	}

	return nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}

	return time.ParseDuration(s)
}

type PersistenceDriver int

const (
	SQLite PersistenceDriver = iota
	BadgerDB
	InMem
)

func ParsePersistenceDriver(driver string) (PersistenceDriver, error) {
	switch driver {
	case "sqlite":
		return SQLite, nil
	case "badger":
		return BadgerDB, nil
	case "inmem":
		return InMem, nil
	default:
		return -1, errors.New("driver not supported")
	}
}

func (driver PersistenceDriver) String() string {
	switch driver {
	case SQLite:
		return "sqlite"
	case BadgerDB:
		return "badger"
	case InMem:
		return "inmem"
	default:
		return "unknown"
	}
}

type Persistence struct {
	Driver PersistenceDriver
	Name   string
	Host   string
	InMem  bool
}

func (p *Persistence) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Driver string `yaml:"driver"`
		Name   string `yaml:"name"`
		Host   string `yaml:"host"`
		InMem  bool   `yaml:"inmem"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	driver, err := ParsePersistenceDriver(raw.Driver)
	if err != nil {
		return err
	}

	p.Driver = driver
	p.Name = raw.Name

	p.Host = raw.Host
	if raw.Host == "" {
		p.Host = Path
	}

	p.InMem = raw.InMem

	return nil
}

type TransportProvider int

const (
	NoTransport TransportProvider = iota
	NATS
)

func ParseTransportProvider(provider string) (TransportProvider, error) {
	switch provider {
	case "", "none":
		return NoTransport, nil
	case "nats":
		return NATS, nil
	default:
		return -1, errors.New("provider not supported")
	}
}

func (p TransportProvider) String() string {
	switch p {
	case NoTransport:
		return "none"
	case NATS:
		return "nats"
	default:
		return ""
	}
}

type EventBus struct {
	Provider TransportProvider
	Topic    string
}

func (e *EventBus) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Provider string `yaml:"provider"`
		Topic    string `yaml:"topic"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	provider, err := ParseTransportProvider(raw.Provider)
	if err != nil {
		return err
	}

	e.Provider = provider
	e.Topic = raw.Topic
	if e.Topic == "" {
		e.Topic = "trading"
	}

	return nil
}

type Binance struct {
	BaseURL   string
	StreamURL string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	CacheTTL  time.Duration
}

func (b *Binance) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL   string  `yaml:"baseUrl"`
		StreamURL string  `yaml:"streamUrl"`
		Timeout   string  `yaml:"timeout"`
		RateLimit float64 `yaml:"rateLimit"`
		CacheTTL  string  `yaml:"cacheTTL"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	*b = DefaultBinance()

	if raw.BaseURL != "" {
		b.BaseURL = raw.BaseURL
	}

	if raw.StreamURL != "" {
		b.StreamURL = raw.StreamURL
	}

	if raw.RateLimit > 0 {
		b.RateLimit = raw.RateLimit
	}

	var err error
	b.Timeout, err = parseDuration(raw.Timeout, b.Timeout)
	if err != nil {
		return err
	}

	b.CacheTTL, err = parseDuration(raw.CacheTTL, b.CacheTTL)
	if err != nil {
		return err
	}

	return nil
}

func DefaultBinance() Binance {
	return Binance{
		BaseURL:   "https://api.binance.com",
		StreamURL: "wss://stream.binance.com:9443",
		Timeout:   5 * time.Second,
		RateLimit: 10,
	}
}

type Review struct {
	Location   *time.Location
	WindowSize int
	RSI        int
	EMAFast    int
	EMASlow    int
}

func (r *Review) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timezone   string `yaml:"timezone"`
		WindowSize int    `yaml:"windowSize"`
		RSI        int    `yaml:"rsi"`
		EMAFast    int    `yaml:"emaFast"`
		EMASlow    int    `yaml:"emaSlow"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Timezone == "" {
		raw.Timezone = "America/New_York"
	}

	loc, err := time.LoadLocation(raw.Timezone)
	if err != nil {
		return err
	}

	r.Location = loc
	r.WindowSize = orDefault(raw.WindowSize, 48)
	r.RSI = orDefault(raw.RSI, 14)
	r.EMAFast = orDefault(raw.EMAFast, 20)
	r.EMASlow = orDefault(raw.EMASlow, 50)

	return nil
}

// DefaultReview is used when the config file omits the review section.
func DefaultReview() Review {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	return Review{
		Location:   loc,
		WindowSize: 48,
		RSI:        14,
		EMAFast:    20,
		EMASlow:    50,
	}
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
