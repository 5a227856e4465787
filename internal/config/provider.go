// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the user config directory lookup when set.
	ConfigDirPath string
	// BaseDir is searched for modular.cue. Empty means the working directory.
	BaseDir string
}

// Provider loads configuration from explicit options.
type Provider interface {
	// Load returns the configuration and the path of the file it came from,
	// or "" when only defaults and the environment applied.
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Validate rejects option paths that exist but are not regular files or
// directories of the expected kind.
func (o LoadOptions) Validate() error {
	var errs []error
	if o.ConfigFilePath != "" {
		if info, err := os.Stat(o.ConfigFilePath); err == nil && info.IsDir() {
			errs = append(errs, errors.New("config file path "+o.ConfigFilePath+" is a directory"))
		}
	}
	for _, dir := range []string{o.ConfigDirPath, o.BaseDir} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			errs = append(errs, errors.New(dir+" is not a directory"))
		}
	}
	if len(errs) > 0 {
		return &InvalidLoadOptionsError{FieldErrors: errs}
	}
	return nil
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}
	return loadWithOptions(ctx, opts)
}
