package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/p1_meter/pkg/pathing"
	"github.com/NotCoffee418/p1_meter/pkg/port_reader"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	ActiveInterpreterAPIConfig *InterpreterAPIConfig
	ActiveMeterCollectorConfig *MeterCollectorConfig
)

var ErrInvalidConfig = errors.New("invalid config")

func DefaultInterpreterAPIConfig() *InterpreterAPIConfig {
	return &InterpreterAPIConfig{
		SerialDevice:            "/dev/ttyUSB0",
		DSMRVersion:             "5",
		SerialBackend:           port_reader.BackendJacobsa,
		ReadTimeoutSeconds:      10,
		MaxTelegramLines:        port_reader.DefaultMaxLines,
		PollIntervalSeconds:     10,
		LogLevel:                LogLevelNormal,
		ListenAddress:           "0.0.0.0",
		ListenPort:              9039,
		SolarInverterIp:         "192.168.200.1",
		SolarInverterModbusPort: 502,
		WlanConnectionId:        "preconfigured", // Check with `nmcli device status`
		KafkaTopic:              "p1-readings",
	}
}

func DefaultMeterCollectorConfig() *MeterCollectorConfig {
	return &MeterCollectorConfig{
		InterpreterAPIHost: "localhost:9039",
		TLSEnabled:         false,
	}
}

func LoadInterpreterAPIConfig() error {
	loadDotEnv()
	cfg, err := LoadInterpreterAPIConfigFrom(filepath.Join(pathing.GetConfigDir(), "interpreter_api.toml"))
	if err != nil {
		return err
	}
	ActiveInterpreterAPIConfig = cfg
	return nil
}

func LoadMeterCollectorConfig() error {
	loadDotEnv()
	cfg, err := LoadMeterCollectorConfigFrom(filepath.Join(pathing.GetConfigDir(), "meter_collector.toml"))
	if err != nil {
		return err
	}
	ActiveMeterCollectorConfig = cfg
	return nil
}

// LoadInterpreterAPIConfigFrom reads configPath, writing the defaults there
// first when it does not exist. Environment overrides are applied last.
func LoadInterpreterAPIConfigFrom(configPath string) (*InterpreterAPIConfig, error) {
	cfg := DefaultInterpreterAPIConfig()
	if err := loadOrCreate(configPath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadMeterCollectorConfigFrom(configPath string) (*MeterCollectorConfig, error) {
	cfg := DefaultMeterCollectorConfig()
	if err := loadOrCreate(configPath, cfg); err != nil {
		return nil, err
	}
	if host := os.Getenv("INTERPRETER_API_HOST"); host != "" {
		cfg.InterpreterAPIHost = host
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = pathing.GetMeterDbPath()
	}
	return cfg, nil
}

func loadOrCreate(configPath string, cfg any) error {
	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return err
		}
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return fmt.Errorf("failed to write default config %s: %w", configPath, err)
		}
		logrus.WithField("path", configPath).Info("Created default config")
		return nil
	}

	// Load existing config over the defaults
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return nil
}

// .env is optional
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}
}

func (c *InterpreterAPIConfig) applyEnv() error {
	if port := os.Getenv("P1_PORT"); port != "" {
		c.SerialDevice = port
	}
	if version := os.Getenv("P1_DSMR_VERSION"); version != "" {
		c.DSMRVersion = version
	}
	if baudrate := os.Getenv("P1_BAUDRATE"); baudrate != "" {
		value, err := strconv.ParseUint(baudrate, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: P1_BAUDRATE %q: %w", ErrInvalidConfig, baudrate, err)
		}
		c.Baudrate = uint(value)
	}
	return nil
}

func (c *InterpreterAPIConfig) Validate() error {
	var errs []error
	if _, err := port_reader.ProfileForVersion(c.DSMRVersion); err != nil {
		errs = append(errs, err)
	}
	switch c.SerialBackend {
	case "", port_reader.BackendJacobsa, port_reader.BackendBugst:
	default:
		errs = append(errs, fmt.Errorf("unknown serial_backend %q", c.SerialBackend))
	}
	switch c.LogLevel {
	case "", LogLevelNormal, LogLevelVerbose:
	default:
		errs = append(errs, fmt.Errorf("log_level must be %s or %s, got %q", LogLevelNormal, LogLevelVerbose, c.LogLevel))
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen_port %d out of range", c.ListenPort))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SerialConfig combines the DSMR version profile with the configured overrides.
func (c *InterpreterAPIConfig) SerialConfig() (port_reader.SerialConfig, error) {
	serialConfig, err := port_reader.ProfileForVersion(c.DSMRVersion)
	if err != nil {
		return port_reader.SerialConfig{}, err
	}
	serialConfig.Device = c.SerialDevice
	serialConfig.Backend = c.SerialBackend
	serialConfig.ReadTimeout = time.Duration(c.ReadTimeoutSeconds) * time.Second
	serialConfig.MaxLines = c.MaxTelegramLines
	if c.Baudrate > 0 {
		serialConfig.BaudRate = c.Baudrate
	}
	return serialConfig, nil
}

func (c *InterpreterAPIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *InterpreterAPIConfig) LogrusLevel() logrus.Level {
	if c.LogLevel == LogLevelVerbose {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}
