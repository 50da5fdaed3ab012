package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/framectl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel     = LogLevelWarning
	DefaultGames        = "/data/adb/framectl/games.toml"
	DefaultVendorRoot   = "/sys/kernel/fpsgo"
	DefaultCPUFreqRoot  = "/sys/devices/system/cpu/cpufreq"
	DefaultNodeDir      = "/cache/framectl_nodes"
	DefaultPIDDir       = "/dev"
	DefaultFPSWindow    = time.Second
	DefaultIdleInterval = time.Second
	DefaultMargin       = 5

	configName   = "framectl"
	configEnv    = "FRAMECTL_CONFIG"
	defaultEnvPx = "FRAMECTL"
)

var defaultSearchPaths = []string{"/data/adb/framectl", "/etc"}

type Config struct {
	Debug        bool          `mapstructure:"debug"`
	Verbose      bool          `mapstructure:"verbose"`
	LogLevel     string        `mapstructure:"log_level"`
	Games        string        `mapstructure:"games"`
	VendorRoot   string        `mapstructure:"vendor_root"`
	CPUFreqRoot  string        `mapstructure:"cpufreq_root"`
	NodeDir      string        `mapstructure:"node_dir"`
	PIDDir       string        `mapstructure:"pid_dir"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	FPSWindow    time.Duration `mapstructure:"fps_window"`
	IdleInterval time.Duration `mapstructure:"idle_interval"`
	Margin       int           `mapstructure:"margin"`
}

// Load reads framectl.toml, FRAMECTL_* environment variables and the given
// command line arguments, in increasing order of precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		configPath:  os.Getenv(configEnv),
		envPrefix:   defaultEnvPx,
		searchPaths: defaultSearchPaths,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	configFlag := flags.String("config", "", "Path to the configuration file")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warning, error)")
	flags.String("games", DefaultGames, "Path to the game list")
	flags.String("vendor-root", DefaultVendorRoot, "Root of the fpsgo vendor interface")
	flags.String("cpufreq-root", DefaultCPUFreqRoot, "Root of the cpufreq policies")
	flags.String("node-dir", DefaultNodeDir, "Directory holding control node pipes")
	flags.String("pid-dir", DefaultPIDDir, "Directory holding the pid file")
	flags.String("metrics-addr", "", "Address serving /metrics and /status (empty disables)")
	flags.Duration("fps-window", DefaultFPSWindow, "Window of the averaged FPS")
	flags.Duration("idle-interval", DefaultIdleInterval, "Poll interval while no game is focused")
	flags.Int("margin", DefaultMargin, "Frame budget margin in percent")

	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	if *configFlag != "" {
		o.configPath = *configFlag
	}
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
	} else {
		v.SetConfigName(configName)
		for _, path := range o.searchPaths {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Flags are registered with dashes, keys use underscores
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// Debug and verbose are shorthands for the log level
	if config.Debug {
		config.LogLevel = string(LogLevelDebug)
	} else if config.Verbose && LogLevel(config.LogLevel) != LogLevelDebug {
		config.LogLevel = string(LogLevelInfo)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.FPSWindow <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "fps_window must be positive")
	}

	if c.IdleInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "idle_interval must be positive")
	}

	if c.Margin < 0 || c.Margin > 100 {
		return errFactory.WithData(errors.ErrInvalidConfig, "margin must be within 0..100")
	}

	for key, path := range map[string]string{
		"games":        c.Games,
		"vendor_root":  c.VendorRoot,
		"cpufreq_root": c.CPUFreqRoot,
		"node_dir":     c.NodeDir,
		"pid_dir":      c.PIDDir,
	} {
		if path == "" {
			return errFactory.WithData(errors.ErrInvalidConfig, key+" must not be empty")
		}
	}

	return nil
}
