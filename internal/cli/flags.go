package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apkfetch/internal/app"
)

const (
	defaultParallel       = 4
	defaultHTTPTimeoutSec = 60
	defaultRetryDelayMs   = 200
)

type httpOptions struct {
	TimeoutSec        int
	Retries           int
	RetryDelayMs      int
	RequestsPerSecond float64
}

func addHTTPFlags(cmd *cobra.Command, opts *httpOptions) {
	cmd.Flags().IntVar(&opts.TimeoutSec, "http-timeout", defaultHTTPTimeoutSec, "HTTP timeout in seconds")
	cmd.Flags().IntVar(&opts.Retries, "http-retries", 0, "Retries for transient HTTP failures")
	cmd.Flags().IntVar(&opts.RetryDelayMs, "http-retry-delay-ms", defaultRetryDelayMs, "Base delay between HTTP retries in milliseconds")
	cmd.Flags().Float64Var(&opts.RequestsPerSecond, "requests-per-second", 0, "Maximum outbound requests per second (0 = unlimited)")
	_ = viper.BindPFlag("http_timeout_sec", cmd.Flags().Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", cmd.Flags().Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", cmd.Flags().Lookup("http-retry-delay-ms"))
	_ = viper.BindPFlag("requests_per_second", cmd.Flags().Lookup("requests-per-second"))
}

func resolveHTTPConfig(cmd *cobra.Command, opts httpOptions) app.HTTPConfig {
	return app.HTTPConfig{
		TimeoutSec:        resolveInt(cmd, opts.TimeoutSec, "http_timeout_sec", "http-timeout"),
		Retries:           resolveInt(cmd, opts.Retries, "http_retries", "http-retries"),
		RetryDelayMs:      resolveInt(cmd, opts.RetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
		RequestsPerSecond: resolveFloat(cmd, opts.RequestsPerSecond, "requests_per_second", "requests-per-second"),
	}
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveStringMap(cmd *cobra.Command, values map[string]string, key string, flagName string) map[string]string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringMapString(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringMapString(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func resolveFloat(cmd *cobra.Command, value float64, key string, flagName string) float64 {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetFloat64(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}

func newAppService() app.Service {
	return app.NewService()
}
