package solarinverter

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"
	"github.com/sirupsen/logrus"
)

var (
	ErrModbusNotConfigured = fmt.Errorf("modbus not configured") // may be intended
	ErrModbusReadFailed    = fmt.Errorf("modbus read failed")
	ErrModbusNotConnected  = fmt.Errorf("modbus not connected")
)

const (
	// Active power, two registers, signed watts
	activePowerRegister = 32080
	cacheDuration       = 10 * time.Second
	maxRetries          = 3
)

type Config struct {
	IP               string
	ModbusPort       int
	WlanConnectionID string
}

// Inverter reads the current production of a solar inverter over Modbus TCP.
type Inverter struct {
	cfg Config
	log logrus.FieldLogger

	// replaced in tests
	readPower func() (int32, error)
	now       func() time.Time

	mu           sync.Mutex
	lastReadWatt int32
	lastReadTime time.Time
}

func New(cfg Config, logger logrus.FieldLogger) *Inverter {
	inv := &Inverter{
		cfg: cfg,
		log: logger.WithField("inverter", cfg.IP),
		now: time.Now,
	}
	inv.readPower = inv.readPowerWithRetries
	return inv
}

// IsConfigured checks if the modbus configuration is set.
// This feature is optional, Empty values as config are acceptable.
func (inv *Inverter) IsConfigured() bool {
	return inv.cfg.IP != "" &&
		inv.cfg.ModbusPort != 0 &&
		inv.cfg.WlanConnectionID != ""
}

// ReadSolarData returns the current production in watt.
// Reads are cached to avoid spamming the poor inverter.
func (inv *Inverter) ReadSolarData() (int32, error) {
	if !inv.IsConfigured() {
		return 0, ErrModbusNotConfigured
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.lastReadTime.After(inv.now().Add(-cacheDuration)) {
		return inv.lastReadWatt, nil
	}

	power, err := inv.readPower()
	if err != nil {
		return 0, err
	}
	inv.lastReadWatt = power
	inv.lastReadTime = inv.now()
	return power, nil
}

func (inv *Inverter) readPowerWithRetries() (int32, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Try reconnecting on retry attempts
			if err := inv.tryReconnect(); err != nil {
				lastErr = fmt.Errorf("reconnect failed on attempt %d: %w", attempt+1, err)
				continue
			}
		}

		// Ping check before attempting modbus connection
		if ok, _, err := ping(inv.cfg.IP); !ok || err != nil {
			lastErr = fmt.Errorf("ping failed on attempt %d: %w", attempt+1, err)
			if attempt < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
			continue
		}

		power, err := inv.readOnce()
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			inv.log.WithError(err).Debug("Inverter read failed")
			if attempt < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
			continue
		}
		return power, nil
	}

	return 0, errors.Join(ErrModbusReadFailed, lastErr)
}

func (inv *Inverter) readOnce() (int32, error) {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", inv.cfg.IP, inv.cfg.ModbusPort))
	handler.Timeout = 10 * time.Second
	handler.SlaveId = 0

	if err := handler.Connect(); err != nil {
		handler.Close()
		return 0, fmt.Errorf("connection failed: %w", err)
	}
	defer handler.Close()

	// The 2s delay after connecting causes everything to not implode as much
	time.Sleep(2 * time.Second)

	result, err := modbus.NewClient(handler).ReadHoldingRegisters(activePowerRegister, 2)
	if err != nil {
		return 0, fmt.Errorf("read power failed: %w", err)
	}
	return decodePower(result)
}

func decodePower(result []byte) (int32, error) {
	if len(result) < 4 {
		return 0, fmt.Errorf("%w: expected 4 bytes, got %d", ErrModbusReadFailed, len(result))
	}
	return int32(result[0])<<24 | int32(result[1])<<16 | int32(result[2])<<8 | int32(result[3]), nil
}

func (inv *Inverter) tryReconnect() error {
	// Check if already connected
	ok, _, err := ping(inv.cfg.IP)
	if err == nil && ok {
		return nil
	}

	// Try reconnecting to wifi
	inv.log.Infof("Bringing up wifi connection %s", inv.cfg.WlanConnectionID)
	cmd := exec.Command("nmcli", "connection", "up", inv.cfg.WlanConnectionID)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to bring up wifi connection: %w", err)
	}

	// Wait a bit for the connection to establish
	time.Sleep(5 * time.Second)

	ok, _, err = ping(inv.cfg.IP)
	if err != nil {
		return err
	}
	if !ok {
		return ErrModbusNotConnected
	}
	return nil
}

func ping(host string) (bool, time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, 0, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	if err := pinger.Run(); err != nil {
		return false, 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt, nil
	}
	return false, 0, fmt.Errorf("no response")
}
