package gallery

import (
	"context"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	"github.com/Peripli/character-gallery/pkg/logging"
	"github.com/Peripli/character-gallery/pkg/server"
	"github.com/Peripli/service-manager/pkg/env"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

type validatable interface {
	Validate() error
}

// Options type holds the gallery specific config properties
type Options struct {
	Title         string        `mapstructure:"title" description:"title shown above the gallery"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" description:"time after which an unused gallery session is discarded"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" description:"interval for discarding expired gallery sessions"`
	MaxSessions   int           `mapstructure:"max_sessions" description:"maximum number of open gallery sessions. 0 means unlimited"`
	User          string        `mapstructure:"user" description:"basic auth user protecting the gallery"`
	PasswordHash  string        `mapstructure:"password_hash" description:"bcrypt hash of the basic auth password"`
}

// DefaultOptions returns the default gallery options
func DefaultOptions() *Options {
	return &Options{
		Title:         "Rick and Morty characters",
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
		MaxSessions:   10000,
	}
}

// BasicAuthEnabled reports whether requests have to authenticate
func (o *Options) BasicAuthEnabled() bool {
	return o.User != "" && o.PasswordHash != ""
}

// Validate validates the gallery options
func (o *Options) Validate() error {
	if o.SessionTTL <= 0 {
		return errors.New("gallery configuration SessionTTL missing")
	}
	if o.SweepInterval <= 0 {
		return errors.New("gallery configuration SweepInterval missing")
	}
	if o.MaxSessions < 0 {
		return errors.Errorf("gallery configuration MaxSessions %d is invalid", o.MaxSessions)
	}
	if (o.User == "") != (o.PasswordHash == "") {
		return errors.New("gallery configuration User and PasswordHash must be provided together")
	}
	if o.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(o.PasswordHash)); err != nil {
			return errors.Wrap(err, "gallery configuration PasswordHash is not a bcrypt hash")
		}
	}
	return nil
}

// Settings type holds all config properties for the gallery
type Settings struct {
	Server  *server.Settings       `mapstructure:"server"`
	Log     *logging.Settings      `mapstructure:"log"`
	API     *characterapi.Settings `mapstructure:"api"`
	Gallery *Options               `mapstructure:"gallery"`
}

// DefaultSettings returns default values for the gallery settings
func DefaultSettings() *Settings {
	return &Settings{
		Server:  server.DefaultSettings(),
		Log:     logging.DefaultSettings(),
		API:     characterapi.DefaultSettings(),
		Gallery: DefaultOptions(),
	}
}

// NewSettings creates new gallery settings from the specified environment
func NewSettings(env env.Environment) (*Settings, error) {
	config := DefaultSettings()
	if err := env.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "error loading gallery configuration")
	}

	return config, nil
}

// AddPFlags adds the gallery config flags to the provided flag set
func AddPFlags(set *pflag.FlagSet) {
	env.CreatePFlags(set, DefaultSettings())

	env.CreatePFlagsForConfigFile(set)
}

// DefaultEnv creates the environment of the gallery. The flag set holds the gallery flags and
// can be adjusted by the additional functions before it is parsed.
func DefaultEnv(additionalPFlags ...func(set *pflag.FlagSet)) env.Environment {
	set := env.EmptyFlagSet()
	AddPFlags(set)
	for _, addFlags := range additionalPFlags {
		addFlags(set)
	}

	environment, err := env.New(context.Background(), set)
	if err != nil {
		panic(errors.Wrap(err, "error creating gallery environment"))
	}
	return environment
}

// Validate validates that the configuration contains all mandatory properties
func (c *Settings) Validate() error {
	if c.Server == nil || c.Log == nil || c.API == nil || c.Gallery == nil {
		return errors.New("gallery configuration is incomplete")
	}
	validatable := []validatable{c.Server, c.Log, c.API, c.Gallery}

	for _, item := range validatable {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
