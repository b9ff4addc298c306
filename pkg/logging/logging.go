package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process logger. Development mode gives human-readable
// output at debug level; everything else gets JSON at info.
func New(service string, development bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.With(zap.String("service", service)), nil
}
