package telemetry

import (
	"go.uber.org/zap"
)

// Logger is the process-wide structured logger. It is a no-op until Init is
// called so packages can log from tests without setup.
var Logger = zap.NewNop()

// Init builds the logger for the given service name.
func Init(serviceName string, production bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if production {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	Logger = l.With(zap.String("service", serviceName))
	return nil
}

// Sync flushes buffered log entries
func Sync() {
	_ = Logger.Sync()
}
