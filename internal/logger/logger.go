package logger

import "go.uber.org/zap"

// New builds the process logger. "development" selects the console encoder
// with debug level; anything else gets the JSON production config.
func New(env string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if env == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}
