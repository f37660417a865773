// Package logging defines the leveled logger capability the engine
// consumes. Production wiring uses the zap adapter; the core only
// ever sees the interface.
package logging

import "go.uber.org/zap"

// Logger is the leveled logging sink collaborator.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}

// Zap adapts a zap.SugaredLogger to the Logger capability.
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps an existing zap logger.
func NewZap(logger *zap.Logger) *Zap {
	return &Zap{sugar: logger.Sugar()}
}

// NewProduction builds a production zap-backed logger.
func NewProduction() (*Zap, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(logger), nil
}

// NewDevelopment builds a human-readable zap-backed logger.
func NewDevelopment() (*Zap, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZap(logger), nil
}

func (z *Zap) Debug(msg string, kv ...any) { z.sugar.Debugw(msg, kv...) }
func (z *Zap) Info(msg string, kv ...any)  { z.sugar.Infow(msg, kv...) }
func (z *Zap) Warn(msg string, kv ...any)  { z.sugar.Warnw(msg, kv...) }
func (z *Zap) Error(msg string, kv ...any) { z.sugar.Errorw(msg, kv...) }

// Sync flushes buffered entries.
func (z *Zap) Sync() error { return z.sugar.Sync() }
