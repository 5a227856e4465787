// SPDX-License-Identifier: MPL-2.0

// Package config handles modular configuration using Viper with CUE as the file format.
//
// Configuration is read from the file given with --config, else from
// <user config dir>/modular/config.cue, else from modular.cue in the base
// directory. Files are validated against the embedded #Config schema
// (config_schema.cue) before they are merged over the defaults.
// MODULAR_* environment variables override file values, with dots in keys
// replaced by underscores (MODULAR_DISCOVERY_OUTPUT).
package config
