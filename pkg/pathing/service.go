package pathing

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDir = "/etc/p1_meter"
	defaultDataDir   = "/var/lib/p1_meter"
)

// EnsureDirs creates the config and data directories when missing.
func EnsureDirs() error {
	for _, dir := range []string{GetConfigDir(), GetDataDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "p1-meter.db")
}

// Overridable with P1METER_DATA_DIR
func GetDataDir() string {
	if dir := os.Getenv("P1METER_DATA_DIR"); dir != "" {
		return dir
	}
	return defaultDataDir
}

// Overridable with P1METER_CONFIG_DIR
func GetConfigDir() string {
	if dir := os.Getenv("P1METER_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigDir
}
