package port_reader

import (
	"errors"
	"io"
	"os"
	"time"

	jacobsa "github.com/jacobsa/go-serial/serial"
	bugst "go.bug.st/serial"
)

type openFunc func(cfg SerialConfig) (io.ReadCloser, error)

var backends = map[string]openFunc{
	BackendJacobsa: openJacobsa,
	BackendBugst:   openBugst,
}

func openJacobsa(cfg SerialConfig) (io.ReadCloser, error) {
	parity := jacobsa.PARITY_NONE
	switch cfg.Parity {
	case ParityEven:
		parity = jacobsa.PARITY_EVEN
	case ParityOdd:
		parity = jacobsa.PARITY_ODD
	}

	options := jacobsa.OpenOptions{
		PortName:   cfg.Device,
		BaudRate:   cfg.BaudRate,
		DataBits:   cfg.DataBits,
		StopBits:   cfg.StopBits,
		ParityMode: parity,

		// Reads return empty once the timeout passes without data
		InterCharacterTimeout: timeoutMillis(cfg.ReadTimeout),
		MinimumReadSize:       0,
	}
	return jacobsa.Open(options)
}

// VTIME is set in deciseconds with a single byte: 100ms..25.5s
func timeoutMillis(d time.Duration) uint {
	ms := d.Milliseconds()
	if ms < 100 {
		return 100
	}
	if ms > 25500 {
		return 25500
	}
	return uint(ms)
}

func openBugst(cfg SerialConfig) (io.ReadCloser, error) {
	mode := &bugst.Mode{
		BaudRate: int(cfg.BaudRate),
		DataBits: int(cfg.DataBits),
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	switch cfg.Parity {
	case ParityEven:
		mode.Parity = bugst.EvenParity
	case ParityOdd:
		mode.Parity = bugst.OddParity
	}
	if cfg.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}

	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, err
	}
	if err := port.SetRTS(false); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// timeoutReader turns an empty read from a serial port into ErrReadTimeout.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		return n, err
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, ErrReadTimeout
	}
	return 0, err
}
