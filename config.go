// Package ukur wires the disruption notifier together: configuration,
// logging, the HTTP surface and the process lifecycle.
package ukur

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bratomyr/ukur/queue"
)

// Defaults applied after loading.
const (
	DefaultPort        = 8080
	DefaultOperator    = "NSB"
	DefaultProductName = "Ukur"
)

type ServerConfig struct {
	Port int `yaml:"port" validate:"omitempty,gt=0"`
}

// AnsharConfig selects and parameterizes the ingestion mode. Polling URLs
// may contain a {requestorId} placeholder.
type AnsharConfig struct {
	ETEnabled         bool   `yaml:"etEnabled"`
	SXEnabled         bool   `yaml:"sxEnabled"`
	UseSubscription   bool   `yaml:"useSubscription"`
	PollingETURL      string `yaml:"pollingEtUrl" validate:"omitempty,url"`
	PollingSXURL      string `yaml:"pollingSxUrl" validate:"omitempty,url"`
	SubscriptionURL   string `yaml:"subscriptionUrl" validate:"omitempty,url"`
	OwnBaseURL        string `yaml:"ownBaseUrl" validate:"omitempty,url"`
	PollingIntervalMS int    `yaml:"pollingIntervalMS" validate:"gte=0"`
}

// PollingInterval is the base trigger cadence.
func (c AnsharConfig) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalMS) * time.Millisecond
}

type TiamatConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url" validate:"omitempty,url"`
	IntervalMS int    `yaml:"intervalMS" validate:"gte=0"`
}

func (c TiamatConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// QueueConfig selects the internal queue transport. With rabbitmq unset the
// queues are in-process channels.
type QueueConfig struct {
	Capacity int                 `yaml:"capacity" validate:"gte=0"`
	Workers  int                 `yaml:"workers" validate:"gte=0"`
	RabbitMQ *queue.RabbitConfig `yaml:"rabbitmq"`
}

type ClusterConfig struct {
	LeaseTTLMS int `yaml:"leaseTTLMS" validate:"gte=0"`
}

func (c ClusterConfig) LeaseTTL() time.Duration {
	return time.Duration(c.LeaseTTLMS) * time.Millisecond
}

type ArchiveConfig struct {
	StoreMessagesToFile bool   `yaml:"storeMessagesToFile"`
	Dir                 string `yaml:"dir"`
}

type Config struct {
	Server      ServerConfig  `yaml:"server"`
	LogLevel    string        `yaml:"logLevel"`
	Operator    string        `yaml:"operator"`
	ProductName string        `yaml:"productName"`
	Anshar      AnsharConfig  `yaml:"anshar"`
	Tiamat      TiamatConfig  `yaml:"tiamat"`
	Queue       QueueConfig   `yaml:"queue"`
	Cluster     ClusterConfig `yaml:"cluster"`
	Archive     ArchiveConfig `yaml:"archive"`
}

// LoadConfig reads and validates the configuration. With an empty path the
// usual locations are tried in order.
func LoadConfig(path string) (*Config, error) {
	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "/etc/ukur/config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.checkMode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Operator == "" {
		c.Operator = DefaultOperator
	}
	if c.ProductName == "" {
		c.ProductName = DefaultProductName
	}
	if c.Anshar.PollingIntervalMS == 0 {
		c.Anshar.PollingIntervalMS = 30_000
	}
	if c.Tiamat.IntervalMS == 0 {
		c.Tiamat.IntervalMS = 3_600_000
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 1000
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 4
	}
	if c.Cluster.LeaseTTLMS == 0 {
		c.Cluster.LeaseTTLMS = 30_000
	}
}

// checkMode verifies the URLs the selected ingestion mode depends on.
// Subscription mode with both kinds disabled is deliberately NOT an error
// here; the app logs it and registers no subscription triggers.
func (c *Config) checkMode() error {
	if c.Anshar.UseSubscription {
		if c.Anshar.SubscriptionURL == "" {
			return fmt.Errorf("subscription mode requires anshar.subscriptionUrl")
		}
		if c.Anshar.OwnBaseURL == "" {
			return fmt.Errorf("subscription mode requires anshar.ownBaseUrl")
		}
		return nil
	}
	if c.Anshar.ETEnabled && c.Anshar.PollingETURL == "" {
		return fmt.Errorf("polling mode with ET enabled requires anshar.pollingEtUrl")
	}
	if c.Anshar.SXEnabled && c.Anshar.PollingSXURL == "" {
		return fmt.Errorf("polling mode with SX enabled requires anshar.pollingSxUrl")
	}
	if c.Tiamat.Enabled && c.Tiamat.URL == "" {
		return fmt.Errorf("tiamat.enabled requires tiamat.url")
	}
	return nil
}
