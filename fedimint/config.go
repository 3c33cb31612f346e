package fedimint

import (
	"time"

	"github.com/spf13/viper"
)

// defaultPaymentTimeoutMS is the wallet-wide default used to drive a new
// payment to completion, on the order of minutes, overridable via Config.
const defaultPaymentTimeoutMS = 3 * 60 * 1000

// Config is this core's process-level configuration: a YAML file with
// an environment-variable overlay via Viper. This governs the process
// that embeds the core, not the core's own API surface.
type Config struct {
	DefaultPaymentTimeoutMS int `mapstructure:"default_payment_timeout_ms" json:"default_payment_timeout_ms"`
	StatusCheckTimeoutMS    int `mapstructure:"status_check_timeout_ms" json:"status_check_timeout_ms"`
	OperationLogWindow      int `mapstructure:"operation_log_window" json:"operation_log_window"`
}

// DefaultConfig returns the built-in timeout and scan-window constants
// as a starting configuration.
func DefaultConfig() Config {
	return Config{
		DefaultPaymentTimeoutMS: defaultPaymentTimeoutMS,
		StatusCheckTimeoutMS:    int(statusCheckTimeout / time.Millisecond),
		OperationLogWindow:      operationLogWindow,
	}
}

// LoadConfig reads a YAML config file named configName from any of
// configPaths, merges `FEDIMINT_`-prefixed environment variables over it,
// and unmarshals onto a copy of DefaultConfig. A missing config file is
// not an error — the defaults stand on their own.
func LoadConfig(configName string, configPaths ...string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("FEDIMINT")
	v.AutomaticEnv()
	// Registering every key lets Unmarshal see env values for keys the
	// config file does not set (or when there is no file at all).
	v.SetDefault("default_payment_timeout_ms", cfg.DefaultPaymentTimeoutMS)
	v.SetDefault("status_check_timeout_ms", cfg.StatusCheckTimeoutMS)
	v.SetDefault("operation_log_window", cfg.OperationLogWindow)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, errInternal("reading fedimint config", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errInternal("unmarshaling fedimint config", err)
	}
	return cfg, nil
}

func (c Config) paymentTimeout() time.Duration {
	return time.Duration(c.DefaultPaymentTimeoutMS) * time.Millisecond
}

func (c Config) statusCheckTimeout() time.Duration {
	return time.Duration(c.StatusCheckTimeoutMS) * time.Millisecond
}
