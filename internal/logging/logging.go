// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging builds the process-wide zap logger from configuration.
package logging

import (
	"fmt"
	"os"

	"github.com/your-org/atom-onboarding/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Option adjusts logger construction
type Option func(*options)

type options struct {
	console zapcore.WriteSyncer
}

// WithConsole sends console output to w. Terminal commands pass stderr so
// their stdout carries only results.
func WithConsole(w zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New creates a logger based on configuration settings. It also returns the
// atomic level so the caller can change verbosity on config reload.
func New(cfg config.LoggingConfig, opts ...Option) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	o := options{console: zapcore.Lock(os.Stdout)}
	if cfg.Output == "stderr" {
		o.console = zapcore.Lock(os.Stderr)
	}
	for _, opt := range opts {
		opt(&o)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEncoder zapcore.Encoder
	if cfg.Format == "json" {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(consoleEncoder, o.console, atomicLevel)

	if cfg.Output == "file" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		// file always gets JSON; console follows the configured format
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), atomicLevel)
		core = zapcore.NewTee(fileCore, core)
	}

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, atomicLevel, nil
}

// ParseLevel maps a configured level name onto a zap level
func ParseLevel(name string) (zapcore.Level, error) {
	switch name {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", name)
	}
}
