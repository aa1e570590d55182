package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Property keys. The three couchbase keys are required by the gateway.
const (
	KeyNodes            = "COUCHBASE_NODES"
	KeyUsername         = "COUCHBASE_USERNAME"
	KeyPassword         = "COUCHBASE_PASSWORD"
	KeyConnectTimeout   = "COUCHBASE_CONNECT_TIMEOUT"
	KeyDriver           = "STORE_DRIVER"
	KeyAPIPort          = "API_PORT"
	KeyLogLevel         = "LOG_LEVEL"
	KeyElasticsearchURL = "ELASTICSEARCH_URL"
)

const (
	DriverCouchbase = "couchbase"
	DriverMemory    = "memory"
)

// ErrMissingProperty is returned when a required property is absent or blank
var ErrMissingProperty = errors.New("missing required property")

// Properties is the application-wide parameter provider
type Properties interface {
	Get(key string) (string, bool)
	GetRequired(key string) (string, error)
}

// Settings are the non-required service settings, with defaults applied
type Settings struct {
	Driver           string
	APIPort          string
	LogLevel         string
	ElasticsearchURL string
	ConnectTimeout   time.Duration
}

// ViperProperties reads properties from the environment and an optional config file
type ViperProperties struct {
	v *viper.Viper
}

// Load reads .env files (parent directory first, then the current one) and builds the
// property provider. configFile is optional; when set it must exist.
func Load(configFile string) (*ViperProperties, error) {
	if err := godotenv.Load("../.env"); err != nil {
		log.Debug().Msg("Not found .env file in parent directory, trying current directory")
		if err := godotenv.Load(".env"); err != nil {
			log.Debug().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Loaded configuration file")
	}

	return &ViperProperties{v: v}, nil
}

// NewViperProperties wraps an existing viper instance
func NewViperProperties(v *viper.Viper) *ViperProperties {
	setDefaults(v)
	return &ViperProperties{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDriver, DriverCouchbase)
	v.SetDefault(KeyAPIPort, "8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyConnectTimeout, 30*time.Second)
}

func (p *ViperProperties) Get(key string) (string, bool) {
	s := strings.TrimSpace(p.v.GetString(key))
	return s, s != ""
}

func (p *ViperProperties) GetRequired(key string) (string, error) {
	return required(p, key)
}

// Settings returns the service settings
func (p *ViperProperties) Settings() Settings {
	timeout := p.v.GetDuration(KeyConnectTimeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Settings{
		Driver:           strings.ToLower(p.v.GetString(KeyDriver)),
		APIPort:          p.v.GetString(KeyAPIPort),
		LogLevel:         p.v.GetString(KeyLogLevel),
		ElasticsearchURL: p.v.GetString(KeyElasticsearchURL),
		ConnectTimeout:   timeout,
	}
}

// StaticProperties is a fixed map of properties
type StaticProperties map[string]string

func (p StaticProperties) Get(key string) (string, bool) {
	s := strings.TrimSpace(p[key])
	return s, s != ""
}

func (p StaticProperties) GetRequired(key string) (string, error) {
	return required(p, key)
}

func required(p Properties, key string) (string, error) {
	s, ok := p.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingProperty, key)
	}
	return s, nil
}
