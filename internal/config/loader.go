package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix      = "WIFIWATCH_"
	FlagConfigPath = "config"
)

// Loader layers the configuration sources. Zero fields fall back to the
// process environment and a ".env" file in the working directory.
type Loader struct {
	Path      string
	EnvFiles  []string
	Flags     *pflag.FlagSet
	LookupEnv func(string) (string, bool)
}

func Load(flags *pflag.FlagSet) (Config, error) {
	return Loader{Flags: flags}.Load()
}

func (l Loader) Load() (Config, error) {
	cfg := Default()

	path := l.Path
	if path == "" && l.Flags != nil {
		if flag := l.Flags.Lookup(FlagConfigPath); flag != nil {
			path = flag.Value.String()
		}
	}
	if strings.TrimSpace(path) != "" {
		raw, _, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		values, err := Flatten(raw)
		if err != nil {
			return Config{}, err
		}
		for _, key := range sortedKeys(values) {
			if err := cfg.Set(key, values[key]); err != nil {
				return Config{}, err
			}
		}
	}

	lookup, err := l.envLookup()
	if err != nil {
		return Config{}, err
	}
	for _, key := range Keys {
		if value, ok := lookup(EnvName(key)); ok {
			if err := cfg.Set(key, value); err != nil {
				return Config{}, fmt.Errorf("%s: %w", EnvName(key), err)
			}
		}
	}

	if l.Flags != nil {
		var flagErr error
		l.Flags.Visit(func(flag *pflag.Flag) {
			key, ok := keyForFlag(flag.Name)
			if !ok || flagErr != nil {
				return
			}
			if err := cfg.Set(key, flag.Value.String()); err != nil {
				flagErr = fmt.Errorf("--%s: %w", flag.Name, err)
			}
		})
		if flagErr != nil {
			return Config{}, flagErr
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envLookup prefers the real environment over values read from .env files.
func (l Loader) envLookup() (func(string) (string, bool), error) {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	files := l.EnvFiles
	if files == nil {
		files = []string{".env"}
	}
	dotenv := map[string]string{}
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read env file %q: %w", file, err)
		}
		for key, value := range values {
			if _, seen := dotenv[key]; !seen {
				dotenv[key] = value
			}
		}
	}
	return func(name string) (string, bool) {
		if value, ok := lookup(name); ok {
			return value, true
		}
		value, ok := dotenv[name]
		return value, ok
	}, nil
}

// EnvName maps a key such as "chart.width" to WIFIWATCH_CHART_WIDTH.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// FlagName maps a key such as "poll_interval" to poll-interval.
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

func keyForFlag(name string) (string, bool) {
	for _, key := range Keys {
		if FlagName(key) == name {
			return key, true
		}
	}
	return "", false
}

// LoadFile reads a local YAML or JSONC config file and requires a top-level
// mapping. Files with no recognised extension are parsed as YAML.
func LoadFile(path string) (map[string]any, string, error) {
	rawPath := strings.TrimSpace(path)
	if rawPath == "" {
		return nil, "", fmt.Errorf("config file path is required")
	}
	if strings.Contains(rawPath, "://") {
		return nil, "", fmt.Errorf("only local filesystem paths are supported")
	}

	resolvedPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolve config path %q: %w", rawPath, err)
	}

	blob, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, resolvedPath, fmt.Errorf("read config file %q: %w", resolvedPath, err)
	}

	var parsed any
	switch strings.ToLower(filepath.Ext(resolvedPath)) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(blob)))
		decoder.UseNumber()
		if err := decoder.Decode(&parsed); err != nil {
			return nil, resolvedPath, fmt.Errorf("parse config JSON %q: %w", resolvedPath, err)
		}
	default:
		if err := yaml.Unmarshal(blob, &parsed); err != nil {
			return nil, resolvedPath, fmt.Errorf("parse config YAML %q: %w", resolvedPath, err)
		}
	}

	cfg, ok := parsed.(map[string]any)
	if !ok {
		return nil, resolvedPath, fmt.Errorf("config file must contain a top-level object")
	}
	return cfg, resolvedPath, nil
}

// Flatten turns nested sections into dotted keys and rejects unknown keys.
func Flatten(raw map[string]any) (map[string]string, error) {
	out := map[string]string{}
	if err := flattenInto(out, "", raw); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out map[string]string, prefix string, raw map[string]any) error {
	for name, value := range raw {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if nested, ok := value.(map[string]any); ok {
			if err := flattenInto(out, key, nested); err != nil {
				return err
			}
			continue
		}
		if _, known := Default().Get(key); !known {
			return fmt.Errorf("unknown config key %q", key)
		}
		switch typed := value.(type) {
		case nil:
			continue
		case string:
			out[key] = typed
		case []any:
			return fmt.Errorf("config key %q: lists are not supported", key)
		default:
			out[key] = fmt.Sprint(typed)
		}
	}
	return nil
}

// Format renders the effective configuration as YAML with the token masked.
func Format(cfg Config) (string, error) {
	root := map[string]any{}
	for _, key := range Keys {
		value, _ := cfg.Get(key)
		if key == KeyToken && value != "" {
			value = "********"
		}
		section, name, nested := strings.Cut(key, ".")
		if !nested {
			root[key] = value
			continue
		}
		child, _ := root[section].(map[string]any)
		if child == nil {
			child = map[string]any{}
			root[section] = child
		}
		child[name] = value
	}
	blob, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("render config YAML: %w", err)
	}
	return string(blob), nil
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
