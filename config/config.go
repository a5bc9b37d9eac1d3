package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Base           Base           `yaml:"base" json:"base"`
	Registry       Registry       `yaml:"registry" json:"registry"`
	Classification Classification `yaml:"classification" json:"classification"`
	Cache          Cache          `yaml:"cache" json:"cache"`
	Logging        Logging        `yaml:"logging" json:"logging"`
}

type Base struct {
	// The URL of the fleet registry GraphQL API.
	// example: https://api.fluent.do/graphql
	APIURL string `yaml:"apiURL" json:"apiURL"`

	// The registration token issued for the organization.
	APIToken string `yaml:"apiToken" json:"apiToken"`

	// The agent name. Defaults to the hostname plus a random suffix.
	AgentName string `yaml:"agentName" json:"agentName"`

	// The agent kind: fluentbit, fluentdo or telemetryforge.
	// example: telemetryforge
	AgentKind string `yaml:"agentKind" json:"agentKind"`

	// Path to the pipeline configuration file reported on registration.
	ConfigFile string `yaml:"configFile" json:"configFile"`

	// Agent labels in key=value format.
	// example: ["env=prod", "region=eu-west-1"]
	Labels []string `yaml:"labels" json:"labels"`

	// Distribution name reported on registration (e.g. debian, ubuntu).
	Distro string `yaml:"distro" json:"distro"`

	// Package type reported on registration: CONTAINER or PACKAGE.
	PackageType string `yaml:"packageType" json:"packageType"`

	// The interval in seconds for metrics reporting.
	// example: 60
	MetricsIntervalSec int `yaml:"metricsIntervalSec" json:"metricsIntervalSec"`

	// Path to the directory holding the session state (agent id and token).
	// example: /var/lib/telemetryforge
	SessionStorePath string `yaml:"sessionStorePath" json:"sessionStorePath"`

	// Optional HTTP proxy in http://host:port format.
	Proxy string `yaml:"proxy" json:"proxy"`
}

type TLSConfig struct {
	// Path to a CA bundle used to verify the server certificate. When empty
	// the system roots are used.
	CAFile string `yaml:"caFile" json:"caFile"`

	// Optional client certificate and key for mutual TLS.
	CertFile string `yaml:"certFile" json:"certFile"`
	KeyFile  string `yaml:"keyFile" json:"keyFile"`

	// Skip server certificate verification. Never enable in production.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify" json:"insecureSkipVerify"`
}

type Registry struct {
	// The page size used by agent queries when the caller does not set one.
	// example: 20
	DefaultPerPage int `yaml:"defaultPerPage" json:"defaultPerPage"`

	// The sort field used by agent queries when the caller does not set one.
	// example: NAME
	DefaultSort string `yaml:"defaultSort" json:"defaultSort"`

	// The per-call request timeout in seconds.
	// example: 30
	RequestTimeoutSec int `yaml:"requestTimeoutSec" json:"requestTimeoutSec"`

	TLS TLSConfig `yaml:"TLS" json:"TLS"`
}

type Classification struct {
	// Enables the log classification feature.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// The URL of the OpenAI-compatible completion endpoint.
	// example: https://api.openai.com/v1/chat/completions
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// The API key sent as a bearer token. Optional for local endpoints.
	APIKey string `yaml:"apiKey" json:"apiKey"`

	// The model addressed by classification requests.
	// example: gpt-4o-mini
	ModelID string `yaml:"modelID" json:"modelID"`

	// The hard per-request timeout in milliseconds.
	// example: 5000
	TimeoutMs int `yaml:"timeoutMs" json:"timeoutMs"`

	// Optional HTTP proxy in http://host:port format.
	Proxy string `yaml:"proxy" json:"proxy"`

	TLS TLSConfig `yaml:"TLS" json:"TLS"`

	// Classification rules, evaluated in one batched request per message.
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Rule routes a log message to a tag when the model answers yes to its
// prompt.
type Rule struct {
	// The tag applied when the rule matches.
	// example: security
	Tag string `yaml:"tag" json:"tag"`

	// The yes/no condition evaluated by the model.
	// example: Does this log line indicate a failed login attempt?
	Prompt string `yaml:"prompt" json:"prompt"`
}

type Cache struct {
	// Enables the shared verdict cache for multi-instance deployments.
	MultiInstance bool `yaml:"multiInstance" json:"multiInstance"`

	// The expiration of cached classification verdicts in seconds.
	// example: 300
	VerdictExpirationSec int `yaml:"verdictExpirationSec" json:"verdictExpirationSec"`

	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig is the redis configuration when the multi-instance cache is
// enabled.
type RedisConfig struct {
	// The Redis host.
	// example: redis
	Host string `yaml:"host" json:"host"`

	// The Redis port.
	// example: 6379
	Port int `yaml:"port" json:"port"`

	// The Redis password.
	Password string `yaml:"password" json:"password"`

	// Redis database to be selected after connecting to the server.
	// example: 0
	DB int `yaml:"db" json:"db"`
}

type Logging struct {
	// Output format of the log.
	// enum: text,json
	// example: json
	Format string `yaml:"format" json:"format"`

	// Log level to be output.
	// enum: info,warn,error,debug
	// example: debug
	Level string `yaml:"level" json:"level"`
}

// Default creates configuration with default values.
func (c *Config) Default() {
	c.Base = Base{
		APIURL:             "https://api.fluent.do/graphql",
		AgentKind:          "telemetryforge",
		MetricsIntervalSec: 60,
		SessionStorePath:   "/var/lib/telemetryforge",
	}
	c.Registry = Registry{
		DefaultPerPage:    20,
		DefaultSort:       "NAME",
		RequestTimeoutSec: 30,
	}
	c.Classification = Classification{
		Enabled:   false,
		Endpoint:  "https://api.openai.com/v1/chat/completions",
		ModelID:   "gpt-4o-mini",
		TimeoutMs: 5000,
	}
	c.Cache = Cache{
		MultiInstance:        false,
		VerdictExpirationSec: 300,
		Redis: RedisConfig{
			Host: "redis",
			Port: 6379,
			DB:   0,
		},
	}
	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// Load reads and parses yaml config.
func (c *Config) Load(fileName string) error {
	f, err := os.ReadFile(fileName)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	c.Default()
	if err := yaml.Unmarshal(f, c); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	return nil
}

// Save saves yaml config.
func (c *Config) Save(fileName string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, b, 0600)
}
