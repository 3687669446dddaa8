// Package log wraps logrus with the small levelled interface used across
// mongolite. The bson codec itself never logs; the stream package and the
// bsonconv command do.
package log

import (
	"flag"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type levelFlag string

// String implements flag.Value.
func (f levelFlag) String() string {
	return fmt.Sprintf("%q", string(f))
}

// Set implements flag.Value.
func (f levelFlag) Set(level string) error {
	return SetLevel(level)
}

// AddFlags adds the log.level flag to the given FlagSet.
func AddFlags(fs *flag.FlagSet) {
	fs.Var(
		levelFlag(origLogger.GetLevel().String()),
		"log.level",
		"Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]",
	)
}

// SetLevel changes the level of the base logger.
func SetLevel(level string) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	origLogger.SetLevel(l)
	return nil
}

// SetOutput redirects the base logger.
func SetOutput(w io.Writer) {
	origLogger.SetOutput(w)
}

// Logger is the interface for loggers used in mongolite components.
type Logger interface {
	Debugln(...interface{})
	Debugf(string, ...interface{})

	Infoln(...interface{})
	Infof(string, ...interface{})

	Warnf(string, ...interface{})

	Errorln(...interface{})
	Errorf(string, ...interface{})

	Printf(string, ...interface{})

	With(key string, value interface{}) Logger
}

type logger struct {
	entry *logrus.Entry
}

func (l logger) With(key string, value interface{}) Logger {
	return logger{l.entry.WithField(key, value)}
}

func (l logger) Debugln(args ...interface{}) {
	l.entry.Debugln(args...)
}

func (l logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l logger) Infoln(args ...interface{}) {
	l.entry.Infoln(args...)
}

func (l logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l logger) Errorln(args ...interface{}) {
	l.entry.Errorln(args...)
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l logger) Printf(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

var origLogger = logrus.New()
var baseLogger = logger{entry: logrus.NewEntry(origLogger)}

// Base returns the default Logger, which writes to stderr.
func Base() Logger {
	return baseLogger
}

// NewLogger returns a new Logger writing to w at the base logger's level.
func NewLogger(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(origLogger.GetLevel())
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	return logger{entry: logrus.NewEntry(l)}
}

// NewNopLogger returns a logger that discards all log messages.
func NewNopLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logger{entry: logrus.NewEntry(l)}
}

// With adds a field to the base logger.
func With(key string, value interface{}) Logger {
	return baseLogger.With(key, value)
}

// Debugln logs a message at level Debug on the base logger.
func Debugln(args ...interface{}) {
	baseLogger.Debugln(args...)
}

// Debugf logs a message at level Debug on the base logger.
func Debugf(format string, args ...interface{}) {
	baseLogger.Debugf(format, args...)
}

// Infoln logs a message at level Info on the base logger.
func Infoln(args ...interface{}) {
	baseLogger.Infoln(args...)
}

// Infof logs a message at level Info on the base logger.
func Infof(format string, args ...interface{}) {
	baseLogger.Infof(format, args...)
}

// Errorln logs a message at level Error on the base logger.
func Errorln(args ...interface{}) {
	baseLogger.Errorln(args...)
}

// Errorf logs a message at level Error on the base logger.
func Errorf(format string, args ...interface{}) {
	baseLogger.Errorf(format, args...)
}
