// Package ctxlog carries a logrus entry in a context.
// Loosely based on https://github.com/containerd/containerd/blob/master/log/context.go
package ctxlog

import (
	"context"

	"github.com/sirupsen/logrus"
)

var (
	// L is an alias for Logger.
	L = Logger
)

type (
	loggerKey struct{}
)

type Fields = logrus.Fields

// FieldPV is the field naming the process variable a message is about.
const FieldPV = "pv"

// WithLogger returns a new context with the provided logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithField returns a new context with the provided field set in the existing logger.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return WithLogger(ctx, Logger(ctx).WithField(key, value))
}

// WithFields returns a new context with the provided fields set in the existing logger.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return WithLogger(ctx, Logger(ctx).WithFields(fields))
}

// WithPV tags the logger with a PV name.
func WithPV(ctx context.Context, name string) context.Context {
	return WithField(ctx, FieldPV, name)
}

// Logger retrieves the current logger from the context. If no logger is
// available, the default logger is returned.
func Logger(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	logger, ok := ctx.Value(loggerKey{}).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger
}
