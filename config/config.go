// Package config loads the simulation run configuration from YAML.
//
// A minimal config:
//
//	start_date: "2024-01-01"
//	end_date: "2024-03-31"
//	initial_capital: "1000000"
//	mode: ai
//	model: deepseek/deepseek-chat
//	llm_api_url: https://openrouter.ai/api/v1/chat/completions
//
// The LLM API key is taken from the CHRONOS_LLM_API_KEY environment
// variable when not present in the file.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/projectchronos/chronos/internal/domain"
)

const (
	defaultWaitBudget     = 300 * time.Second
	defaultInitialCapital = 1_000_000
	llmAPIKeyEnv          = "CHRONOS_LLM_API_KEY"
)

// Config fully parsed run configuration.
type Config struct {
	StartDate       time.Time
	EndDate         time.Time
	InitialCapital  decimal.Decimal
	Mode            domain.Mode
	Model           string
	WaitBudget      time.Duration
	Platform        string
	Pair            domain.Pair
	OutputDir       string
	DataDir         string
	GenerateDebates bool
	LLMAPIURL       string
	LLMAPIKey       string
}

// ConfigTmp raw YAML shape before validation.
type ConfigTmp struct {
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	InitialCapital  string `yaml:"initial_capital,omitempty"`
	Mode            string `yaml:"mode,omitempty"`
	Model           string `yaml:"model,omitempty"`
	WaitBudget      string `yaml:"wait_budget,omitempty"`
	Platform        string `yaml:"platform,omitempty"`
	Pair            string `yaml:"pair,omitempty"`
	OutputDir       string `yaml:"output_dir,omitempty"`
	DataDir         string `yaml:"data_dir,omitempty"`
	GenerateDebates bool   `yaml:"generate_debates,omitempty"`
	LLMAPIURL       string `yaml:"llm_api_url,omitempty"`
	LLMAPIKey       string `yaml:"llm_api_key,omitempty"`
}

// Get parses command line flags and loads the configuration. The second
// return value reports that the setup wizard was requested.
func Get() (Config, bool, error) {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive setup wizard")
	flag.Parse()

	if *setup {
		return Config{}, true, nil
	}

	cfg, err := Load(*configPath)
	return cfg, false, err
}

// Load reads and validates a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config %s (run with --setup to generate one): %w", path, err)
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, fmt.Errorf("invalid yaml in %s: %w", path, err)
	}

	return fromTmp(tmp)
}

func fromTmp(tmp ConfigTmp) (Config, error) {
	cfg := Config{
		Platform:        "binance",
		OutputDir:       "output",
		DataDir:         "data",
		WaitBudget:      defaultWaitBudget,
		Mode:            domain.ModeAI,
		InitialCapital:  decimal.NewFromInt(defaultInitialCapital),
		Pair:            domain.Pair{From: "BTC", To: "USDT"},
		GenerateDebates: tmp.GenerateDebates,
		Model:           tmp.Model,
		LLMAPIURL:       tmp.LLMAPIURL,
		LLMAPIKey:       tmp.LLMAPIKey,
	}

	var err error
	if cfg.StartDate, err = time.Parse("2006-01-02", tmp.StartDate); err != nil {
		return Config{}, fmt.Errorf("incorrect 'start_date' param in yaml config (format 2006-01-02): %w", err)
	}
	if cfg.EndDate, err = time.Parse("2006-01-02", tmp.EndDate); err != nil {
		return Config{}, fmt.Errorf("incorrect 'end_date' param in yaml config (format 2006-01-02): %w", err)
	}
	if cfg.EndDate.Before(cfg.StartDate) {
		return Config{}, fmt.Errorf("'end_date' %s is before 'start_date' %s", tmp.EndDate, tmp.StartDate)
	}

	if tmp.InitialCapital != "" {
		cfg.InitialCapital, err = decimal.NewFromString(tmp.InitialCapital)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'initial_capital' param in yaml config: %w", err)
		}
		if !cfg.InitialCapital.IsPositive() {
			return Config{}, fmt.Errorf("'initial_capital' must be positive, got %s", tmp.InitialCapital)
		}
	}

	switch tmp.Mode {
	case "":
	case string(domain.ModeAI):
		cfg.Mode = domain.ModeAI
	case string(domain.ModeRuleOnly):
		cfg.Mode = domain.ModeRuleOnly
	default:
		return Config{}, fmt.Errorf("incorrect 'mode' param in yaml config: %s (want ai or rule)", tmp.Mode)
	}

	if tmp.WaitBudget != "" {
		cfg.WaitBudget, err = time.ParseDuration(tmp.WaitBudget)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'wait_budget' param in yaml config: %w", err)
		}
		if cfg.WaitBudget <= 0 {
			return Config{}, fmt.Errorf("'wait_budget' must be positive, got %s", tmp.WaitBudget)
		}
	}

	switch tmp.Platform {
	case "", "binance":
		cfg.Platform = "binance"
	case "bybit", "hyperliquid":
		cfg.Platform = tmp.Platform
	default:
		return Config{}, fmt.Errorf("incorrect 'platform' param in yaml config: %s (want binance, bybit or hyperliquid)", tmp.Platform)
	}

	if tmp.Pair != "" {
		cfg.Pair, err = domain.PairFromString(tmp.Pair)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %w", err)
		}
	}

	if tmp.OutputDir != "" {
		cfg.OutputDir = tmp.OutputDir
	}
	if tmp.DataDir != "" {
		cfg.DataDir = tmp.DataDir
	}

	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv(llmAPIKeyEnv)
	}

	if cfg.Mode == domain.ModeAI {
		if cfg.LLMAPIURL == "" {
			return Config{}, fmt.Errorf("'llm_api_url' is required in ai mode")
		}
		if cfg.Model == "" {
			return Config{}, fmt.Errorf("'model' is required in ai mode")
		}
		if cfg.LLMAPIKey == "" {
			return Config{}, fmt.Errorf("LLM API key is required in ai mode (set 'llm_api_key' or %s)", llmAPIKeyEnv)
		}
	}

	return cfg, nil
}
