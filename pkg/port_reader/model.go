package port_reader

import (
	"bufio"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultReadTimeout = 10 * time.Second

	// Counted over every line read in one attempt, including the noise before
	// the first header. Leaves room for a partial telegram plus a full one.
	DefaultMaxLines = 128

	BackendJacobsa = "jacobsa"
	BackendBugst   = "bugst"
)

type Parity string

const (
	ParityNone Parity = "N"
	ParityEven Parity = "E"
	ParityOdd  Parity = "O"
)

// SerialConfig describes how to open the P1 port. Flow control is always off.
type SerialConfig struct {
	Device      string
	BaudRate    uint
	DataBits    uint
	Parity      Parity
	StopBits    uint
	ReadTimeout time.Duration
	MaxLines    int
	Backend     string
}

// Connection is an open P1 stream. It is owned by a single read cycle and
// must not be read from concurrently.
type Connection struct {
	name     string
	port     io.Closer
	reader   *bufio.Reader
	maxLines int
	log      logrus.FieldLogger
	closed   bool
}
