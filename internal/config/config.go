// Package config loads apiout configuration files. HCL (.hcl) and JSON
// (.json) files are supported; several files merge into one api.Config.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/apiout/api"
	"github.com/agentic-research/apiout/internal/ctxlog"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DirEnv overrides the directory named configs are looked up in.
const DirEnv = "APIOUT_CONFIG_DIR"

var (
	// ErrUnknownConfig is returned when a config reference matches no file.
	ErrUnknownConfig = errors.New("unknown config")
	// ErrNoConfig is returned when Load is called without references.
	ErrNoConfig = errors.New("no config specified")
)

// Dir returns the directory holding named configs: $APIOUT_CONFIG_DIR, or
// apiout under the user config directory.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "apiout"), nil
}

// Locate maps a reference to a file. An existing path is used as given;
// otherwise ref is a name looked up as <Dir>/<ref>.hcl, then .json.
func Locate(ref string) (string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return ref, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	for _, ext := range []string{".hcl", ".json"} {
		candidate := filepath.Join(dir, ref+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownConfig, ref)
}

// Load resolves every reference and merges the files in order.
func Load(ctx context.Context, refs ...string) (*api.Config, error) {
	if len(refs) == 0 {
		return nil, ErrNoConfig
	}
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	merged := &api.Config{}
	for _, ref := range refs {
		path, err := Locate(ref)
		if err != nil {
			return nil, err
		}
		cfg, err := loadFile(parser, path)
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded config.", "ref", ref, "path", path, "apis", len(cfg.APIs))
		Merge(merged, cfg)
	}
	return merged, nil
}

// LoadFile parses a single configuration file by extension.
func LoadFile(path string) (*api.Config, error) {
	return loadFile(hclparse.NewParser(), path)
}

func loadFile(parser *hclparse.Parser, path string) (*api.Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(path, src)
	case ".hcl":
		return parseHCL(parser, path, src)
	}
	return nil, fmt.Errorf("config %s: unsupported file type (want .hcl or .json)", path)
}

// Merge folds src into dst. Clients and serializers merge by name with src
// winning; APIs append, except that an API whose name is already present
// replaces the earlier definition in place.
func Merge(dst, src *api.Config) {
	for name, c := range src.Clients {
		if dst.Clients == nil {
			dst.Clients = make(map[string]api.Client)
		}
		dst.Clients[name] = c
	}
	for name, s := range src.Serializers {
		if dst.Serializers == nil {
			dst.Serializers = make(map[string]any)
		}
		dst.Serializers[name] = s
	}
	for _, a := range src.APIs {
		replaced := false
		for i := range dst.APIs {
			if dst.APIs[i].Name == a.Name {
				dst.APIs[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			dst.APIs = append(dst.APIs, a)
		}
	}
}
