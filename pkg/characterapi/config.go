/*
 * Copyright 2018 The Service Manager Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package characterapi

import (
	"net/url"
	"time"

	"github.com/Peripli/service-manager/pkg/env"
	"github.com/pkg/errors"
)

// DefaultURL is the character listing endpoint of the public Rick and Morty API
const DefaultURL = "https://rickandmortyapi.com/api/character/"

// Settings type holds character API client config properties
type Settings struct {
	URL                string        `mapstructure:"url" description:"character listing endpoint, used as the first page cursor"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" description:"timeout for a single page request"`
	SkipSSLValidation  bool          `mapstructure:"skip_ssl_validation" description:"whether to skip ssl verification when calling the API"`
	MaxRetries         int           `mapstructure:"max_retries" description:"number of attempts for a page request, 1 disables retries"`
	RetryInterval      time.Duration `mapstructure:"retry_interval" description:"time to wait between attempts"`
	UserAgent          string        `mapstructure:"user_agent" description:"user agent sent to the API"`
	BreakerMaxFailures int           `mapstructure:"breaker_max_failures" description:"consecutive failed loads that open the circuit, 0 disables the breaker"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout" description:"how long the circuit stays open"`
}

// DefaultSettings builds a default character API Settings
func DefaultSettings() *Settings {
	return &Settings{
		URL:                DefaultURL,
		RequestTimeout:     10 * time.Second,
		SkipSSLValidation:  false,
		MaxRetries:         1,
		RetryInterval:      500 * time.Millisecond,
		UserAgent:          "character-gallery",
		BreakerMaxFailures: 0,
		BreakerTimeout:     30 * time.Second,
	}
}

// NewSettings builds a character API Settings from the provided Environment
func NewSettings(env env.Environment) (*Settings, error) {
	config := struct {
		API *Settings
	}{DefaultSettings()}

	if err := env.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling character API configuration")
	}

	return config.API, nil
}

// Validate validates the configuration and returns appropriate errors in case it is invalid
func (c *Settings) Validate() error {
	if len(c.URL) == 0 {
		return errors.New("API configuration URL missing")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.Wrap(err, "API configuration URL is invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("API configuration URL must be http or https, got %q", c.URL)
	}
	if c.RequestTimeout == 0 {
		return errors.New("API configuration RequestTimeout missing")
	}
	if c.MaxRetries < 1 {
		return errors.New("API configuration MaxRetries must be at least 1")
	}
	if c.MaxRetries > 1 && c.RetryInterval <= 0 {
		return errors.New("API configuration RetryInterval must be positive when retries are enabled")
	}
	if c.BreakerMaxFailures < 0 {
		return errors.New("API configuration BreakerMaxFailures must not be negative")
	}
	if c.BreakerMaxFailures > 0 && c.BreakerTimeout <= 0 {
		return errors.New("API configuration BreakerTimeout must be positive when the breaker is enabled")
	}
	return nil
}
