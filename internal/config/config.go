// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/daylightnebula/modular/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "modular"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ProjectFileName is the name of the per-project config file (without extension).
	ProjectFileName = "modular"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "MODULAR"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modular directory below os.UserConfigDir.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// loadWithOptions performs option-driven config loading.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'modular config dump' to see a valid configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check MODULAR_* environment variables as well as the config file").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("classpath", defaults.Classpath)
	v.SetDefault("discovery.output", defaults.Discovery.Output)
	v.SetDefault("discovery.glue", defaults.Discovery.Glue)
	v.SetDefault("discovery.glue_file", defaults.Discovery.GlueFile)
	v.SetDefault("discovery.markers", defaults.Discovery.Markers)
	v.SetDefault("discovery.patterns", defaults.Discovery.Patterns)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
}

// resolvePath picks the config file: the explicit path, else the user config
// file, else the project file in BaseDir. "" means none exists.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modular config dump' to write a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}
	if userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(userPath) {
		return userPath, nil
	}

	if projectPath := filepath.Join(opts.BaseDir, ProjectFileName+"."+ConfigFileExt); fileExists(projectPath) {
		return projectPath, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	// Every field is optional.
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modular configuration\n\n")
	writeList(&sb, "", "classpath", cfg.Classpath)

	sb.WriteString("\ndiscovery: {\n")
	fmt.Fprintf(&sb, "\toutput: %q\n", cfg.Discovery.Output)
	fmt.Fprintf(&sb, "\tglue: %v\n", cfg.Discovery.Glue)
	fmt.Fprintf(&sb, "\tglue_file: %q\n", cfg.Discovery.GlueFile)
	writeList(&sb, "\t", "markers", cfg.Discovery.Markers)
	writeList(&sb, "\t", "patterns", cfg.Discovery.Patterns)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce_ms: %d\n", cfg.Watch.DebounceMS)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, indent, name string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s%s: []\n", indent, name)
		return
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, name)
	for _, item := range items {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, item)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}
