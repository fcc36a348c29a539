package port_reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sirupsen/logrus"
)

var (
	ErrConnection  = errors.New("connection error")
	ErrReadTimeout = errors.New("read timeout")
	ErrFraming     = errors.New("framing error")

	ErrUnknownVersion = errors.New("unknown DSMR version")
)

// ProfileForVersion returns the serial settings used by a DSMR protocol version.
func ProfileForVersion(version string) (SerialConfig, error) {
	switch version {
	case "2", "2.2":
		// DSMR 2.2: 9600 7E1
		return SerialConfig{BaudRate: 9600, DataBits: 7, Parity: ParityEven, StopBits: 1}, nil
	case "4", "4.0", "4.2", "5", "5.0":
		// DSMR 4.x and 5: 115200 8N1
		return SerialConfig{BaudRate: 115200, DataBits: 8, Parity: ParityNone, StopBits: 1}, nil
	}
	return SerialConfig{}, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxLines <= 0 {
		c.MaxLines = DefaultMaxLines
	}
	if c.Backend == "" {
		c.Backend = BackendJacobsa
	}
	if c.Parity == "" {
		c.Parity = ParityNone
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	return c
}

// Open the serial device described by cfg.
func Open(cfg SerialConfig, logger logrus.FieldLogger) (*Connection, error) {
	cfg = cfg.withDefaults()
	if cfg.Device == "" || cfg.Device == "None" {
		return nil, fmt.Errorf("%w: no serial device configured", ErrConnection)
	}

	open, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: unknown serial backend %q", ErrConnection, cfg.Backend)
	}

	logger.WithFields(logrus.Fields{
		"device":   cfg.Device,
		"backend":  cfg.Backend,
		"baudrate": cfg.BaudRate,
		"format":   fmt.Sprintf("%d%s%d", cfg.DataBits, cfg.Parity, cfg.StopBits),
		"timeout":  cfg.ReadTimeout,
	}).Debug("Opening serial connection")

	port, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open serial port %s: %w", ErrConnection, cfg.Device, err)
	}

	return newConnection(cfg.Device, port, timeoutReader{r: port}, cfg.MaxLines, logger), nil
}

// NewConnection reads telegrams from any stream, e.g. a captured file.
// The end of the stream is treated as a framing error, not a timeout.
func NewConnection(name string, stream io.ReadCloser, maxLines int, logger logrus.FieldLogger) *Connection {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return newConnection(name, stream, stream, maxLines, logger)
}

func newConnection(name string, port io.Closer, r io.Reader, maxLines int, logger logrus.FieldLogger) *Connection {
	return &Connection{
		name:     name,
		port:     port,
		reader:   bufio.NewReader(r),
		maxLines: maxLines,
		log:      logger.WithField("device", name),
	}
}

func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.log.Debug("Closing connection")
	return c.port.Close()
}

// ReadOneTelegram reads lines until a complete telegram has been seen.
// A header line restarts the telegram, the first "!" line after a header
// ends it. Fails with ErrFraming when MaxLines lines pass without that.
func (c *Connection) ReadOneTelegram() (types.RawTelegram, error) {
	if c.closed {
		return nil, fmt.Errorf("%w: connection to %s is closed", ErrConnection, c.name)
	}

	var buffer bytes.Buffer
	startFound := false
	c.log.Debug("Start reading lines")

	for linesRead := 0; linesRead < c.maxLines; linesRead++ {
		line, err := c.reader.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return nil, c.readError(err, linesRead)
		}

		if trimmed := bytes.TrimLeft(line, " \t\r\n\x00"); bytes.HasPrefix(trimmed, []byte("/")) {
			buffer.Reset()
			buffer.Write(trimmed)
			startFound = true
		} else if startFound {
			buffer.Write(line)
			if bytes.HasPrefix(line, []byte("!")) {
				telegram := types.RawTelegram(buffer.Bytes())
				c.log.WithFields(logrus.Fields{
					"telegram_lines": len(telegram.Lines()),
					"lines_read":     linesRead + 1,
				}).Debug("Done reading one telegram")
				return telegram, nil
			}
		}

		if err != nil {
			// Final line without newline at the end of a stream
			return nil, c.readError(err, linesRead+1)
		}
	}

	return nil, fmt.Errorf("%w: no complete telegram within %d lines (start found: %t)", ErrFraming, c.maxLines, startFound)
}

func (c *Connection) readError(err error, linesRead int) error {
	c.log.WithError(err).Debugf("Read a total of %d lines", linesRead)
	switch {
	case errors.Is(err, ErrReadTimeout):
		return fmt.Errorf("%w: no data from %s after %d lines", ErrReadTimeout, c.name, linesRead)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: stream %s ended before end of telegram: %w", ErrFraming, c.name, io.EOF)
	}
	return fmt.Errorf("%w: reading from %s: %w", ErrConnection, c.name, err)
}

// ReadTelegram opens the port, reads one telegram and closes the port again,
// whatever the outcome.
func ReadTelegram(cfg SerialConfig, logger logrus.FieldLogger) (types.RawTelegram, error) {
	conn, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.ReadOneTelegram()
}

// Source reads one telegram per call from a serial device.
type Source struct {
	Config SerialConfig
	Logger logrus.FieldLogger
}

func (s *Source) ReadTelegram() (types.RawTelegram, error) {
	return ReadTelegram(s.Config, s.Logger)
}
