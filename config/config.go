// Package config assembles alerter configuration from a YAML file, CLI flags
// and environment variables.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

const (
	defaultPollPriceInterval = 60 * time.Second
	defaultDailyCloseCron    = "5 0 * * *" // 00:05 UTC, just after the daily candle closes
	defaultRequestTimeout    = 10 * time.Second
	defaultStateDir          = "./state"
	defaultHTTPAddr          = "127.0.0.1:8085"
	defaultMaxTriggers       = 15
)

// SMTP holds mail transport credentials, sourced from the environment.
type SMTP struct {
	Server   string `envconfig:"SMTP_SERVER" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Sender   string `envconfig:"SENDER_EMAIL"`
	Password string `envconfig:"SENDER_PASSWORD"`
}

// Config is the full, immutable alerter configuration.
type Config struct {
	Pair              domain.Pair
	Thresholds        domain.Thresholds
	PollPriceInterval time.Duration
	DailyCloseCron    string
	RequestTimeout    time.Duration
	StateDir          string
	HTTPAddr          string
	BrokerEmail       string
	PersonalEmail     string
	Allocations       domain.AllocationPlan
	SMTP              SMTP

	// Setup requests the interactive configuration wizard instead of a run.
	Setup bool
}

type ConfigTmp struct {
	Pair                     string                `yaml:"pair"`
	PollPriceInterval        time.Duration         `yaml:"poll_price_interval"`
	DailyCloseCron           string                `yaml:"daily_close_cron,omitempty"`
	RequestTimeout           time.Duration         `yaml:"request_timeout,omitempty"`
	IntradayThresholdPercent string                `yaml:"intraday_threshold_percent,omitempty"`
	CloseThresholdPercent    string                `yaml:"close_threshold_percent,omitempty"`
	MaxTriggers              int                   `yaml:"max_triggers,omitempty"`
	StateDir                 string                `yaml:"state_dir,omitempty"`
	HTTPAddr                 string                `yaml:"http_addr,omitempty"`
	BrokerEmail              string                `yaml:"broker_email"`
	PersonalEmail            string                `yaml:"personal_email"`
	Allocations              *domain.AllocationPlan `yaml:"allocations,omitempty"`
}

// Get builds the configuration. A YAML file (--config) takes precedence over
// individual CLI flags; SMTP credentials always come from the environment.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive configuration wizard")
	pairFlag := flag.String("pair", "BTC_USDT", "monitored pair, example: BTC_USDT")
	pollInterval := flag.Duration("pollpriceinterval", defaultPollPriceInterval, "intraday price poll interval")
	intradayThreshold := flag.String("intradaythreshold", "-4.7", "intraday drop percent that fires a trigger")
	closeThreshold := flag.String("closethreshold", "-3.3", "close-to-close drop percent that fires a trigger")
	maxTriggers := flag.Int("maxtriggers", defaultMaxTriggers, "maximum number of triggers in the sequence")
	stateDir := flag.String("statedir", defaultStateDir, "directory for the persisted trigger state")
	httpAddr := flag.String("httpaddr", defaultHTTPAddr, "listen address of the operator HTTP endpoint, empty disables it")
	brokerEmail := flag.String("brokeremail", "", "broker recipient for buy orders")
	personalEmail := flag.String("personalemail", "", "personal recipient for action-required alerts")
	flag.Parse()

	var (
		cfg Config
		err error
	)

	if *configPath != "" {
		cfg, err = getYaml(*configPath)
	} else {
		cfg, err = fromFlags(*pairFlag, *intradayThreshold, *closeThreshold, *maxTriggers,
			*pollInterval, *stateDir, *httpAddr, *brokerEmail, *personalEmail)
	}
	if err != nil {
		return Config{}, err
	}

	if err := envconfig.Process("", &cfg.SMTP); err != nil {
		return Config{}, fmt.Errorf("read SMTP environment: %w", err)
	}

	cfg.Setup = *setup
	// the wizard collects recipients itself, everything else needs them up front.
	if !cfg.Setup {
		if err := validateRecipients(cfg.BrokerEmail, cfg.PersonalEmail); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func validateRecipients(brokerEmail, personalEmail string) error {
	if brokerEmail == "" {
		return fmt.Errorf("broker email is required, set broker_email in yaml or --brokeremail")
	}
	if personalEmail == "" {
		return fmt.Errorf("personal email is required, set personal_email in yaml or --personalemail")
	}
	return nil
}

func fromFlags(pairStr, intradayStr, closeStr string, maxTriggers int,
	pollInterval time.Duration, stateDir, httpAddr, brokerEmail, personalEmail string) (Config, error) {

	pair, err := domain.ParsePair(pairStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --pair provided, --pair=%s: %w", pairStr, err)
	}

	thresholds, err := parseThresholds(intradayStr, closeStr, maxTriggers)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Pair:              pair,
		Thresholds:        thresholds,
		PollPriceInterval: pollInterval,
		DailyCloseCron:    defaultDailyCloseCron,
		RequestTimeout:    defaultRequestTimeout,
		StateDir:          stateDir,
		HTTPAddr:          httpAddr,
		BrokerEmail:       brokerEmail,
		PersonalEmail:     personalEmail,
		Allocations:       domain.DefaultAllocationPlan(),
	}, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	pair, err := domain.ParsePair(tmp.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", tmp.Pair, err)
	}

	if tmp.IntradayThresholdPercent == "" {
		tmp.IntradayThresholdPercent = "-4.7"
	}
	if tmp.CloseThresholdPercent == "" {
		tmp.CloseThresholdPercent = "-3.3"
	}
	if tmp.MaxTriggers == 0 {
		tmp.MaxTriggers = defaultMaxTriggers
	}
	thresholds, err := parseThresholds(tmp.IntradayThresholdPercent, tmp.CloseThresholdPercent, tmp.MaxTriggers)
	if err != nil {
		return Config{}, err
	}

	if err := validateRecipients(tmp.BrokerEmail, tmp.PersonalEmail); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Pair:              pair,
		Thresholds:        thresholds,
		PollPriceInterval: tmp.PollPriceInterval,
		DailyCloseCron:    tmp.DailyCloseCron,
		RequestTimeout:    tmp.RequestTimeout,
		StateDir:          tmp.StateDir,
		HTTPAddr:          tmp.HTTPAddr,
		BrokerEmail:       tmp.BrokerEmail,
		PersonalEmail:     tmp.PersonalEmail,
		Allocations:       domain.DefaultAllocationPlan(),
	}

	if tmp.Allocations != nil {
		cfg.Allocations = *tmp.Allocations
	}
	if cfg.PollPriceInterval == 0 {
		cfg.PollPriceInterval = defaultPollPriceInterval
	}
	if cfg.DailyCloseCron == "" {
		cfg.DailyCloseCron = defaultDailyCloseCron
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir
	}

	return cfg, nil
}

func parseThresholds(intradayStr, closeStr string, maxTriggers int) (domain.Thresholds, error) {
	intraday, err := decimal.NewFromString(intradayStr)
	if err != nil {
		return domain.Thresholds{}, fmt.Errorf("incorrect intraday threshold (must be a decimal like -4.7): %w", err)
	}
	close, err := decimal.NewFromString(closeStr)
	if err != nil {
		return domain.Thresholds{}, fmt.Errorf("incorrect close-to-close threshold (must be a decimal like -3.3): %w", err)
	}

	thresholds, err := domain.NewThresholds(intraday, close, maxTriggers)
	if err != nil {
		return domain.Thresholds{}, fmt.Errorf("invalid thresholds: %w", err)
	}
	return thresholds, nil
}
