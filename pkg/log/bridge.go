package log

import (
	"bytes"
	stdlog "log"

	"github.com/hamba/pkg/log"
)

// Level is the level lines written through a Bridge are logged at.
type Level int

// The log level constants.
const (
	Debug Level = iota
	Info
	Error
)

// Bridge writes stdlib log lines to a structured logger.
type Bridge struct {
	log    log.Logger
	lvl    Level
	prefix string
}

// NewBridge returns a stdlib logger that writes through the given logger.
func NewBridge(l log.Logger, lvl Level, prefix string) *stdlog.Logger {
	if l == nil {
		l = log.Null
	}

	return stdlog.New(&Bridge{log: l, lvl: lvl, prefix: prefix}, "", 0)
}

// Write writes a log line.
func (b *Bridge) Write(p []byte) (n int, err error) {
	line := b.prefix + string(bytes.TrimRight(p, "\r\n"))

	switch b.lvl {
	case Debug:
		b.log.Debug(line)

	case Error:
		b.log.Error(line)

	default:
		b.log.Info(line)
	}

	return len(p), nil
}
