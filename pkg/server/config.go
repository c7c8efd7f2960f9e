package server

import (
	"time"

	"github.com/pkg/errors"
)

// Settings type holds the HTTP server config properties
type Settings struct {
	Port            int           `mapstructure:"port" description:"port of the server"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" description:"read timeout of requests and deadline of page loads triggered by them"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" description:"time to wait for running requests on shutdown"`
	WSPingPeriod    time.Duration `mapstructure:"ws_ping_period" description:"interval of websocket pings"`
}

// DefaultSettings returns the default server settings
func DefaultSettings() *Settings {
	return &Settings{
		Port:            8080,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		WSPingPeriod:    30 * time.Second,
	}
}

// Validate validates the server settings
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return errors.Errorf("server configuration Port %d is invalid", s.Port)
	}
	if s.RequestTimeout <= 0 {
		return errors.New("server configuration RequestTimeout missing")
	}
	if s.ShutdownTimeout <= 0 {
		return errors.New("server configuration ShutdownTimeout missing")
	}
	if s.WSPingPeriod <= 0 {
		return errors.New("server configuration WSPingPeriod missing")
	}
	return nil
}
