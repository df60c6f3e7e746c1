package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction. Zero value logs JSON at info level to stdout.
type Options struct {
	Service string
	Level   string
	File    string
	Output  io.Writer
}

// New creates a JSON logrus logger tagged with the service name. When File is
// set, entries are also written to a size-rotated file.
func New(opts Options) *logrus.Entry {
	log := logrus.New()

	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 30,
			MaxAge:     90, // days
		})
	}
	log.SetOutput(out)
	log.SetLevel(ParseLevel(opts.Level))

	service := opts.Service
	if service == "" {
		service = "emostim"
	}
	return log.WithField("service", service)
}

func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Entry {
	return New(Options{Output: io.Discard, Level: "error"})
}
