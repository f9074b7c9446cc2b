// Package logging builds the node's structured logger on top of
// zap.NewDevelopmentConfig / zap.NewProductionConfig plus a fixed set of
// contextual fields.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls the logger's mode and the contextual fields every log
// line from this node carries.
type Options struct {
	Development bool
	Level       zapcore.Level
	NodeID      string
}

// New builds a *zap.Logger tagged with the node's id, so every log line
// a node emits can be attributed to it in a multi-node deployment.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(opts.Level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if opts.NodeID != "" {
		logger = logger.With(zap.String("node", opts.NodeID))
	}
	return logger, nil
}
