// Package config loads the orchestrator configuration from configs/config.yml,
// MATRIX_* environment variables and the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/service"
	"matrix_orchestrator/internal/supervisor"
	"matrix_orchestrator/internal/weather"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MATRIX"

// Own command-line flags. Everything else on the command line is passed
// through to the display programs.
const (
	flagConfig        = "config"
	flagWeatherAPIKey = "weather-api-key"
	flagLogLevel      = "log-level"
)

var ownFlags = map[string]bool{
	flagConfig:        true,
	flagWeatherAPIKey: true,
	flagLogLevel:      true,
}

type ProgramConfig struct {
	ExtraArgs []string `mapstructure:"extra_args"`
}

type ProcessConfig struct {
	StartGrace time.Duration `mapstructure:"start_grace"`
	KillWait   time.Duration `mapstructure:"kill_wait"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

type WeatherConfig struct {
	Program        string        `mapstructure:"program"`
	Duration       time.Duration `mapstructure:"duration"`
	TriggerMinutes []int         `mapstructure:"trigger_minutes"`
	FontPath       string        `mapstructure:"font_path"`
	FontFlag       string        `mapstructure:"font_flag"`
	APIKeyFlag     string        `mapstructure:"api_key_flag"`
	APIKey         string        `mapstructure:"api_key"`
	Args           []string      `mapstructure:"args"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type DBConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"` // journal entries older than this are pruned at startup; 0 keeps all
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

type OperatorConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type AuthConfig struct {
	SigningKey string           `mapstructure:"signing_key"`
	TokenTTL   time.Duration    `mapstructure:"token_ttl"`
	Operators  []OperatorConfig `mapstructure:"operators"`
}

type Config struct {
	ScheduleFile   string                   `mapstructure:"schedule_file"`
	ScriptsDir     string                   `mapstructure:"scripts_dir"`
	DefaultProgram string                   `mapstructure:"default_program"`
	PollInterval   time.Duration            `mapstructure:"poll_interval"`
	CommonArgs     []string                 `mapstructure:"common_args"`
	Programs       map[string]ProgramConfig `mapstructure:"programs"`
	Process        ProcessConfig            `mapstructure:"process"`
	Retry          RetryConfig              `mapstructure:"retry"`
	Weather        WeatherConfig            `mapstructure:"weather"`
	Log            LogConfig                `mapstructure:"log"`
	DB             DBConfig                 `mapstructure:"db"`
	HTTP           HTTPConfig               `mapstructure:"http"`
	Auth           AuthConfig               `mapstructure:"auth"`

	// PassThrough holds the command-line arguments forwarded to every child.
	PassThrough []string `mapstructure:"-"`
	// File is the config file actually read, empty if none was found.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schedule_file", "configs/holidays.conf")
	v.SetDefault("scripts_dir", "/opt/matrix/programs")
	v.SetDefault("default_program", "clock")
	v.SetDefault("poll_interval", service.DefaultPollInterval)
	v.SetDefault("common_args", []string{})
	v.SetDefault("programs", map[string]any{})

	v.SetDefault("process.start_grace", 2*time.Second)
	v.SetDefault("process.kill_wait", time.Second)

	r := service.DefaultRetryPolicy()
	v.SetDefault("retry.max_attempts", r.MaxAttempts)
	v.SetDefault("retry.base_delay", r.BaseDelay)
	v.SetDefault("retry.max_delay", r.MaxDelay)

	v.SetDefault("weather.program", "weather")
	v.SetDefault("weather.duration", 30*time.Second)
	v.SetDefault("weather.trigger_minutes", weather.DefaultTriggerMinutes)
	v.SetDefault("weather.font_path", "")
	v.SetDefault("weather.font_flag", "--font")
	v.SetDefault("weather.api_key_flag", "--api-key")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.args", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "orchestrator.log")
	v.SetDefault("db.path", "orchestrator.db")
	v.SetDefault("db.retention", 90*24*time.Hour)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.port", "8080")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.operators", []map[string]any{})
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("orchestrator", pflag.ContinueOnError)
	fs.String(flagConfig, "", "path to the config file (default configs/config.yml)")
	fs.String(flagWeatherAPIKey, "", "weather API key; enables the weather interrupt")
	fs.String(flagLogLevel, "", "log level: debug, info, warn, error")
	return fs
}

// Load resolves the configuration from args (without the program name).
// A missing config file is not an error; a malformed one is.
func Load(args []string) (*Config, error) {
	own, pass := SplitArgs(args)

	flags := newFlagSet()
	if err := flags.Parse(own); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("weather.api_key", flags.Lookup(flagWeatherAPIKey)); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("log.level", flags.Lookup(flagLogLevel)); err != nil {
		return nil, err
	}

	if path, _ := flags.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.PassThrough = pass
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// SplitArgs separates the orchestrator's own flags from the arguments passed
// through to the display programs. Own flags may be written as --flag value
// or --flag=value. Everything after a bare "--" is passed through.
func SplitArgs(args []string) (own, pass []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			pass = append(pass, args[i+1:]...)
			break
		}
		name, hasValue := flagName(a)
		if !ownFlags[name] {
			pass = append(pass, a)
			continue
		}
		own = append(own, a)
		if !hasValue && i+1 < len(args) {
			i++
			own = append(own, args[i])
		}
	}
	return own, pass
}

// flagName returns the long flag name in a, and whether a carries its value.
func flagName(a string) (string, bool) {
	if !strings.HasPrefix(a, "--") || len(a) == 2 {
		return "", false
	}
	name := a[2:]
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], true
	}
	return name, false
}

// WeatherEnabled reports whether an API key is configured.
func (c *Config) WeatherEnabled() bool {
	return strings.TrimSpace(c.Weather.APIKey) != ""
}

// SupervisorConfig builds the launch configuration. Pass-through arguments
// follow the configured common_args.
func (c *Config) SupervisorConfig() supervisor.Config {
	common := append(append([]string{}, c.CommonArgs...), c.PassThrough...)
	programs := make(map[string]supervisor.ProgramSpec, len(c.Programs))
	for name, p := range c.Programs {
		programs[strings.ToLower(name)] = supervisor.ProgramSpec{ExtraArgs: append([]string{}, p.ExtraArgs...)}
	}
	return supervisor.Config{
		ScriptsDir: c.ScriptsDir,
		CommonArgs: common,
		Programs:   programs,
		Weather: supervisor.WeatherSpec{
			Program:    c.Weather.Program,
			Args:       append([]string{}, c.Weather.Args...),
			FontFlag:   c.Weather.FontFlag,
			FontPath:   c.Weather.FontPath,
			APIKeyFlag: c.Weather.APIKeyFlag,
			APIKey:     c.Weather.APIKey,
		},
		StartGrace: c.Process.StartGrace,
		KillWait:   c.Process.KillWait,
	}
}

func (c *Config) WeatherControllerConfig() weather.Config {
	return weather.Config{
		Enabled:        c.WeatherEnabled(),
		Program:        c.Weather.Program,
		Duration:       c.Weather.Duration,
		TriggerMinutes: c.Weather.TriggerMinutes,
	}
}

func (c *Config) RetryPolicy() service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
	}
}

func (c *Config) AuthServiceConfig() service.AuthConfig {
	return service.AuthConfig{SigningKey: c.Auth.SigningKey, TokenTTL: c.Auth.TokenTTL}
}

func (c *Config) Operators() []models.Operator {
	out := make([]models.Operator, 0, len(c.Auth.Operators))
	for _, op := range c.Auth.Operators {
		out = append(out, models.Operator{Username: op.Username, PasswordHash: op.PasswordHash})
	}
	return out
}
