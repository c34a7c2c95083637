package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM       LLMConfig                `yaml:"llm"`
	Agents    map[string]AgentSettings `yaml:"agents"`
	Data      DataConfig               `yaml:"data"`
	Workflow  WorkflowConfig           `yaml:"workflow"`
	NATS      NATSConfig               `yaml:"nats"`
	Store     StoreConfig              `yaml:"store"`
	Web       WebConfig                `yaml:"web"`
	Scheduler SchedulerConfig          `yaml:"scheduler"`
	Telegram  TelegramConfig           `yaml:"telegram"`
	Vault     VaultConfig              `yaml:"vault"`
}

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// AgentSettings overrides the default LLM settings for a single agent role.
type AgentSettings struct {
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
}

type DataConfig struct {
	BlockspacePath string `yaml:"blockspace_path"`
	DatasetDir     string `yaml:"dataset_dir"`
}

type WorkflowConfig struct {
	MaxSteps int `yaml:"max_steps"`
}

type NATSConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Auth    string `yaml:"auth"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TelegramConfig struct {
	Token     string  `yaml:"token"`
	ChatID    int64   `yaml:"chat_id"`
	AllowFrom []int64 `yaml:"allow_from"`
}

type VaultConfig struct {
	Passphrase string `yaml:"passphrase"`
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.1,
			Timeout:     2 * time.Minute,
		},
		Data: DataConfig{
			BlockspacePath: "data/growthepie/inspect_blockspace.json",
			DatasetDir:     "data/growthepie/cache",
		},
		Workflow: WorkflowConfig{
			MaxSteps: 32,
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Store: StoreConfig{
			Path: "data/feescope.db",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("FEESCOPE_CONFIG")
	if path == "" {
		path = "config/feescope.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("FEESCOPE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("FEESCOPE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("FEESCOPE_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("FEESCOPE_WEB_PASSWORD"); v != "" {
		cfg.Web.Auth = v
	}
	if v := os.Getenv("FEESCOPE_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("FEESCOPE_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("FEESCOPE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FEESCOPE_BLOCKSPACE_PATH"); v != "" {
		cfg.Data.BlockspacePath = v
	}
	if v := os.Getenv("FEESCOPE_DATASET_DIR"); v != "" {
		cfg.Data.DatasetDir = v
	}
	if v := os.Getenv("FEESCOPE_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}

// ResolveModel returns the model for an agent role, falling back to the
// default LLM model when the role has no override.
func (c *Config) ResolveModel(role string) string {
	if s, ok := c.Agents[role]; ok && s.Model != "" {
		return s.Model
	}
	return c.LLM.Model
}

// ResolveTemperature returns the sampling temperature for an agent role.
func (c *Config) ResolveTemperature(role string) float32 {
	if s, ok := c.Agents[role]; ok && s.Temperature != nil {
		return *s.Temperature
	}
	return c.LLM.Temperature
}
