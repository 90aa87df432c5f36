// Package packstoreconfig loads packstore.Options from JSONC config
// files, layering a global user config, a project config, and an
// explicit path override — the same precedence and file format the host
// repository uses for its own configuration.
package packstoreconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/packstore/pkg/packstore"
)

// ConfigFileName is the default project config file name.
const ConfigFileName = ".packstore.json"

var (
	errConfigFileNotFound = errors.New("packstoreconfig: config file not found")
	errConfigFileRead     = errors.New("packstoreconfig: failed to read config file")
	errConfigInvalid      = errors.New("packstoreconfig: invalid config")
	errPathEmpty          = errors.New("packstoreconfig: path must not be empty")
)

// fileOptions is the on-disk shape of a config file. Every field is
// optional; zero values mean "not set" and are not merged over a
// previously loaded layer.
type fileOptions struct {
	Path     string   `json:"path,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
	FillRate *float64 `json:"fill_rate,omitempty"`
}

// Sources tracks which config files contributed to a loaded
// packstore.Options, for diagnostics.
type Sources struct {
	Global  string
	Project string
}

// LoadOptions loads packstore.Options with the following precedence
// (highest wins):
//  1. defaults ([packstore.Never], fill rate 0)
//  2. global user config (~/.config/packstore/config.json or
//     $XDG_CONFIG_HOME/packstore/config.json)
//  3. the project config file: configPath if non-empty (relative paths
//     are resolved against workDir, and the file must exist), otherwise
//     workDir/.packstore.json if present
//  4. overrides.Path, if hasPathOverride is true
//
// Only the Path of overrides is applied; its Strategy and FillRate are
// ignored.
func LoadOptions(workDir, configPath string, overrides packstore.Options, hasPathOverride bool, env []string) (packstore.Options, Sources, error) {
	opts := packstore.Options{Strategy: packstore.Never}

	var sources Sources

	globalOpts, globalPath, err := loadGlobalOptions(env)
	if err != nil {
		return packstore.Options{}, Sources{}, err
	}

	sources.Global = globalPath
	opts = mergeOptions(opts, globalOpts)

	projectOpts, projectPath, err := loadProjectOptions(workDir, configPath)
	if err != nil {
		return packstore.Options{}, Sources{}, err
	}

	sources.Project = projectPath
	opts = mergeOptions(opts, projectOpts)

	if hasPathOverride {
		opts.Path = overrides.Path
	}

	if err := validateOptions(opts); err != nil {
		return packstore.Options{}, Sources{}, err
	}

	return opts, sources, nil
}

func loadGlobalOptions(env []string) (packstore.Options, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return packstore.Options{}, "", nil
	}

	opts, loaded, err := loadOptionsFile(path, false)
	if err != nil {
		return packstore.Options{}, "", err
	}

	if !loaded {
		return packstore.Options{}, "", nil
	}

	return opts, path, nil
}

func loadProjectOptions(workDir, configPath string) (packstore.Options, string, error) {
	var (
		path      string
		mustExist bool
	)

	if configPath != "" {
		path = configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		mustExist = true

		if _, statErr := os.Stat(path); statErr != nil {
			return packstore.Options{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}
	} else {
		path = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	opts, loaded, err := loadOptionsFile(path, mustExist)
	if err != nil {
		return packstore.Options{}, "", err
	}

	if !loaded {
		return packstore.Options{}, "", nil
	}

	return opts, path, nil
}

// loadOptionsFile reads and parses path. If mustExist is false, a
// missing file is not an error and reports loaded=false.
func loadOptionsFile(path string, mustExist bool) (packstore.Options, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled configuration
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return packstore.Options{}, false, nil
		}

		return packstore.Options{}, false, fmt.Errorf("%w: %s", errConfigFileRead, path)
	}

	opts, parseErr := parseOptions(data)
	if parseErr != nil {
		return packstore.Options{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return opts, true, nil
}

func parseOptions(data []byte) (packstore.Options, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return packstore.Options{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fo fileOptions

	if err := json.Unmarshal(standardized, &fo); err != nil {
		return packstore.Options{}, fmt.Errorf("invalid JSON: %w", err)
	}

	opts := packstore.Options{Path: fo.Path}

	if fo.Strategy != "" {
		strategy, err := parseStrategy(fo.Strategy)
		if err != nil {
			return packstore.Options{}, err
		}

		opts.Strategy = strategy
	}

	if fo.FillRate != nil {
		opts.FillRate = *fo.FillRate
	}

	return opts, nil
}

func parseStrategy(name string) (packstore.Strategy, error) {
	switch strings.ToLower(name) {
	case "never":
		return packstore.Never, nil
	case "always":
		return packstore.Always, nil
	case "check_count":
		return packstore.CheckCount, nil
	case "check_size":
		return packstore.CheckSize, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", errConfigInvalid, name)
	}
}

func mergeOptions(base, overlay packstore.Options) packstore.Options {
	if overlay.Path != "" {
		base.Path = overlay.Path
	}

	if overlay.Strategy != packstore.Never {
		base.Strategy = overlay.Strategy
	}

	if overlay.FillRate != 0 {
		base.FillRate = overlay.FillRate
	}

	return base
}

func validateOptions(opts packstore.Options) error {
	if opts.Path == "" {
		return errPathEmpty
	}

	return nil
}

// globalConfigPath returns the path to the global user config file,
// checking env (before os.Getenv, so tests can control it) for
// XDG_CONFIG_HOME. Returns "" if no home directory can be determined.
func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "packstore", "config.json")
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "packstore", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "packstore", "config.json")
}
