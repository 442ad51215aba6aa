// Package config loads the service settings. Sources are applied in the
// order defaults, JSON file, environment and command line, each one
// overriding the previous.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
)

const (
	configFileEnv = "CONFIG"
	portEnv       = "PORT"
)

var allowedLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

// Config holds every setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"listenaddr"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	LogFile             string        `env:"LOG_FILE" validate:"filepath"`
	LogErrorFile        string        `env:"LOG_ERROR_FILE" validate:"filepath"`
	Env                 string        `env:"APP_ENV" validate:"oneof=development production test"`
	RequestIDHeader     string        `env:"REQUEST_ID_HEADER" validate:"required"`
	RateLimitRPS        float64       `env:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst      int           `env:"RATE_LIMIT_BURST" validate:"gte=1"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	EnableGzip          bool          `env:"ENABLE_GZIP"`
	GRPCHealthAddr      string        `env:"GRPC_HEALTH_ADDR" validate:"omitempty,listenaddr"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" validate:"gt=0"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ReadTimeout         time.Duration `env:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout        time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0"`
}

var defaultConfig = Config{
	RunAddr:             ":3000",
	LogLevel:            "info",
	Env:                 "development",
	RequestIDHeader:     "X-Request-ID",
	RateLimitBurst:      20,
	EnableGzip:          true,
	HealthCheckInterval: 10 * time.Second,
	ShutdownTimeout:     10 * time.Second,
	ReadTimeout:         15 * time.Second,
	WriteTimeout:        15 * time.Second,
}

// fileConfig mirrors Config for the JSON file. Pointers tell a missing key
// from a zero value.
type fileConfig struct {
	RunAddr             *string  `json:"server_address"`
	LogLevel            *string  `json:"log_level"`
	LogFile             *string  `json:"log_file"`
	LogErrorFile        *string  `json:"log_error_file"`
	Env                 *string  `json:"app_env"`
	RequestIDHeader     *string  `json:"request_id_header"`
	RateLimitRPS        *float64 `json:"rate_limit_rps"`
	RateLimitBurst      *int     `json:"rate_limit_burst"`
	TrustedSubnet       *string  `json:"trusted_subnet"`
	EnableGzip          *bool    `json:"enable_gzip"`
	GRPCHealthAddr      *string  `json:"grpc_health_address"`
	HealthCheckInterval *string  `json:"health_check_interval"`
	ShutdownTimeout     *string  `json:"shutdown_timeout"`
	ReadTimeout         *string  `json:"read_timeout"`
	WriteTimeout        *string  `json:"write_timeout"`
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}

	return !info.IsDir()
}

// validateListenAddr accepts host:port with an optional host and port 0 for
// an ephemeral port.
func validateListenAddr(fieldLevel validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fieldLevel.Field().String())
	if err != nil {
		return false
	}

	_, err = strconv.ParseUint(port, 10, 16)

	return err == nil
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("listenaddr", validateListenAddr)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command line. Tests use it because the
// test binary owns os.Args.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New loads, merges and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	var (
		cliValues  Config
		configPath = os.Getenv(configFileEnv)
		setFlags   = map[string]bool{}
	)
	if !options.disableFlagsParsing {
		flagSet := newFlagSet(&cliValues, &configPath)
		if err := flagSet.Parse(options.args); err != nil {
			return nil, err
		}
		flagSet.Visit(func(f *flag.Flag) {
			setFlags[f.Name] = true
		})
	}

	values := defaultConfig

	if configPath != "" {
		if err := values.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	if port := os.Getenv(portEnv); port != "" {
		values.RunAddr = ":" + port
	}

	if err := env.Parse(&values); err != nil {
		return nil, err
	}

	values.applyFlags(&cliValues, setFlags)

	applyDefaults(&values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}

func newFlagSet(values *Config, configPath *string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

	flagSet.StringVar(configPath, "c", *configPath, "path to a JSON config file")
	flagSet.StringVar(&values.RunAddr, "a", defaultConfig.RunAddr, "address and port to run server")
	flagSet.StringVar(&values.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	flagSet.StringVar(&values.LogFile, "log-file", "", "file to copy all logs to")
	flagSet.StringVar(&values.LogErrorFile, "log-error-file", "", "file to copy error logs to")
	flagSet.StringVar(&values.Env, "env", defaultConfig.Env, "environment: development, production or test")
	flagSet.Float64Var(&values.RateLimitRPS, "rps", 0, "requests per second allowed per client, 0 disables the limit")
	flagSet.IntVar(&values.RateLimitBurst, "burst", defaultConfig.RateLimitBurst, "rate limit burst size")
	flagSet.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to read /metrics")
	flagSet.BoolVar(&values.EnableGzip, "z", defaultConfig.EnableGzip, "enable gzip compression")
	flagSet.StringVar(&values.GRPCHealthAddr, "g", "", "address of the gRPC health server, empty disables it")

	return flagSet
}

func (c *Config) applyFlags(cliValues *Config, setFlags map[string]bool) {
	if setFlags["a"] {
		c.RunAddr = cliValues.RunAddr
	}
	if setFlags["l"] {
		c.LogLevel = cliValues.LogLevel
	}
	if setFlags["log-file"] {
		c.LogFile = cliValues.LogFile
	}
	if setFlags["log-error-file"] {
		c.LogErrorFile = cliValues.LogErrorFile
	}
	if setFlags["env"] {
		c.Env = cliValues.Env
	}
	if setFlags["rps"] {
		c.RateLimitRPS = cliValues.RateLimitRPS
	}
	if setFlags["burst"] {
		c.RateLimitBurst = cliValues.RateLimitBurst
	}
	if setFlags["t"] {
		c.TrustedSubnet = cliValues.TrustedSubnet
	}
	if setFlags["z"] {
		c.EnableGzip = cliValues.EnableGzip
	}
	if setFlags["g"] {
		c.GRPCHealthAddr = cliValues.GRPCHealthAddr
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&c.RunAddr, file.RunAddr)
	setString(&c.LogLevel, file.LogLevel)
	setString(&c.LogFile, file.LogFile)
	setString(&c.LogErrorFile, file.LogErrorFile)
	setString(&c.Env, file.Env)
	setString(&c.RequestIDHeader, file.RequestIDHeader)
	setString(&c.TrustedSubnet, file.TrustedSubnet)
	setString(&c.GRPCHealthAddr, file.GRPCHealthAddr)
	if file.RateLimitRPS != nil {
		c.RateLimitRPS = *file.RateLimitRPS
	}
	if file.RateLimitBurst != nil {
		c.RateLimitBurst = *file.RateLimitBurst
	}
	if file.EnableGzip != nil {
		c.EnableGzip = *file.EnableGzip
	}

	durations := []struct {
		target *time.Duration
		raw    *string
	}{
		{&c.HealthCheckInterval, file.HealthCheckInterval},
		{&c.ShutdownTimeout, file.ShutdownTimeout},
		{&c.ReadTimeout, file.ReadTimeout},
		{&c.WriteTimeout, file.WriteTimeout},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		*d.target = parsed
	}

	return nil
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

// applyDefaults refills settings that a source blanked out and that have no
// meaningful zero value.
func applyDefaults(values *Config, defaults Config) {
	if values.RunAddr == "" {
		values.RunAddr = defaults.RunAddr
	}
	if values.LogLevel == "" {
		values.LogLevel = defaults.LogLevel
	}
	if values.Env == "" {
		values.Env = defaults.Env
	}
	if values.RequestIDHeader == "" {
		values.RequestIDHeader = defaults.RequestIDHeader
	}
	if values.RateLimitBurst == 0 {
		values.RateLimitBurst = defaults.RateLimitBurst
	}
	if values.HealthCheckInterval == 0 {
		values.HealthCheckInterval = defaults.HealthCheckInterval
	}
	if values.ShutdownTimeout == 0 {
		values.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if values.ReadTimeout == 0 {
		values.ReadTimeout = defaults.ReadTimeout
	}
	if values.WriteTimeout == 0 {
		values.WriteTimeout = defaults.WriteTimeout
	}
}
