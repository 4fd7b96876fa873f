/*
Copyright 2025 The Packtools authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logger constructs the structured logger shared by the toolkit's
// commands and libraries.
package logger

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	flagLogEncoding = "log-encoding"
	flagLogLevel    = "log-level"
)

var levelStrings = map[string]zapcore.Level{
	// zap doesn't include trace level as a const, but it accepts any
	// int8; logr will convert a log.V(n) to zap's scheme, so e.g.,
	// V(2) will be custom debug level -2 in zap (i.e., `trace`
	// below).
	"trace": zapcore.DebugLevel - 1,
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"error": zapcore.ErrorLevel,
}

// These are for convenience when doing log.V(...) to log at a particular level. They correspond to the logr
// equivalents of the zap levels above.
const (
	TraceLevel = 2
	DebugLevel = 1
	InfoLevel  = 0
)

// Options contains the configuration options for the toolkit logger.
//
// The struct can be used in the main.go file of your command by binding it to the main flag set, and then utilizing
// the configured options later:
//
//	func main() {
//		var (
//			// other command specific configuration variables
//			loggerOptions logger.Options
//		)
//
//		// Bind the options to the main flag set, and parse it
//		loggerOptions.BindFlags(flag.CommandLine)
//		flag.Parse()
//
//		// Use the values during the initialisation of the logger
//		log := logger.NewLogger(loggerOptions)
//	}
type Options struct {
	LogEncoding string
	LogLevel    string
}

// BindFlags will parse the given pflag.FlagSet for logger option flags and set the Options accordingly.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.LogEncoding, flagLogEncoding, "json",
		"Log encoding format. Can be 'json' or 'console'.")
	fs.StringVar(&o.LogLevel, flagLogLevel, "info",
		"Log verbosity level. Can be one of 'trace', 'debug', 'info', 'error'.")
}

// NewLogger returns a logger configured with the given Options, writing to
// stderr with timestamps set to the ISO8601 format.
func NewLogger(opts Options) logr.Logger {
	level := zapcore.InfoLevel
	if l, ok := levelStrings[opts.LogLevel]; ok {
		level = l
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch opts.LogEncoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder,
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		zap.NewAtomicLevelAt(level))
	return zapr.NewLogger(zap.New(core))
}
