package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/apiout/api"
	"github.com/agentic-research/apiout/internal/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const githubHCL = `
client "github" {
  module       = "http"
  client_class = "Client"
}

serializer "repo" {
  fields = {
    name  = "name"
    stars = "stargazers_count"
    owner = {
      path = "owner.login"
    }
  }
}

api "repos" {
  client     = "github"
  method     = "Get"
  url        = "https://api.example.com/users/${env.APIOUT_TEST_USER}/repos"
  params     = { per_page = 5, sort = "updated", tags = ["a", "b"] }
  serializer = "repo"
}

api "inline" {
  module = "static"
  method = "Echo"
  serializer = {
    fields = { zeta = "z", alpha = "a" }
  }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestLoadFile_HCL(t *testing.T) {
	t.Setenv("APIOUT_TEST_USER", "octo")
	path := writeFile(t, t.TempDir(), "github.hcl", githubHCL)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, api.Client{Module: "http", ClientClass: "Client"}, cfg.Clients["github"])
	require.Len(t, cfg.APIs, 2)

	repos := cfg.APIs[0]
	assert.Equal(t, "repos", repos.Name)
	assert.Equal(t, "github", repos.Client)
	assert.Equal(t, "https://api.example.com/users/octo/repos", repos.URL)
	assert.Equal(t, "repo", repos.Serializer)
	assert.Equal(t, `{"per_page":5,"sort":"updated","tags":["a","b"]}`, marshal(t, repos.Params))

	t.Run("object order follows the source", func(t *testing.T) {
		assert.Equal(t,
			`{"fields":{"name":"name","stars":"stargazers_count","owner":{"path":"owner.login"}}}`,
			marshal(t, cfg.Serializers["repo"]))
		assert.Equal(t, `{"fields":{"zeta":"z","alpha":"a"}}`, marshal(t, cfg.APIs[1].Serializer))
	})

	t.Run("compiles", func(t *testing.T) {
		reg, err := serializer.CompileRegistry(cfg.Serializers)
		require.NoError(t, err)
		assert.NotNil(t, reg["repo"])
	})

	t.Run("absent expressions are nil", func(t *testing.T) {
		assert.Nil(t, cfg.APIs[1].Params)
	})
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "db.json", `{
  "clients": {"db": {"module": "sqlite"}},
  "serializers": {"row": {"fields": {"b": "b", "a": "a"}}},
  "apis": [
    {"name": "rows", "client": "db", "method": "Query", "url": "file.db",
     "params": {"query": "select 1"}, "serializer": "row"}
  ]
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Clients["db"].Module)
	assert.Equal(t, `{"fields":{"b":"b","a":"a"}}`, marshal(t, cfg.Serializers["row"]))
	require.Len(t, cfg.APIs, 1)
	assert.Equal(t, "Query", cfg.APIs[0].Method)
	assert.Equal(t, `{"query":"select 1"}`, marshal(t, cfg.APIs[0].Params))

	resolved := cfg.Resolved(cfg.APIs[0])
	assert.Equal(t, "sqlite", resolved.Module)
	assert.Empty(t, resolved.ClientClass)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"broken.hcl":  `api "x" {`,
		"unknown.hcl": `widget "x" {}`,
		"broken.json": `{"apis": `,
		"list.json":   `[]`,
		"apis.json":   `{"apis": {"name": "x"}}`,
		"config.toml": `[clients]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, dir, name, content))
			assert.Error(t, err)
		})
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)
	hclPath := writeFile(t, dir, "prod.hcl", `api "a" {}`)
	jsonPath := writeFile(t, dir, "dev.json", `{}`)
	writeFile(t, dir, "both.hcl", ``)
	writeFile(t, dir, "both.json", `{}`)

	got, err := Locate(hclPath)
	require.NoError(t, err)
	assert.Equal(t, hclPath, got)

	got, err = Locate("prod")
	require.NoError(t, err)
	assert.Equal(t, hclPath, got)

	got, err = Locate("dev")
	require.NoError(t, err)
	assert.Equal(t, jsonPath, got)

	got, err = Locate("both")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "both.hcl"), got)

	_, err = Locate("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownConfig)

	_, err = Locate("/nonexistent/config.hcl")
	assert.ErrorIs(t, err, ErrUnknownConfig)
}

func TestLoad_Merge(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)
	writeFile(t, dir, "base.hcl", `
client "c" {
  module = "http"
}
serializer "s" {
  fields = { a = "a" }
}
api "one" {
  module = "static"
  method = "Echo"
  url    = "first"
}
api "two" {
  module = "static"
  method = "Echo"
}
`)
	override := writeFile(t, t.TempDir(), "override.json", `{
  "clients": {"c": {"module": "sqlite"}},
  "serializers": {"s": {"fields": {"b": "b"}}},
  "apis": [
    {"name": "three", "module": "static", "method": "Echo"},
    {"name": "one", "module": "static", "method": "Echo", "url": "second"}
  ]
}`)

	cfg, err := Load(context.Background(), "base", override)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Clients["c"].Module)
	assert.Equal(t, `{"fields":{"b":"b"}}`, marshal(t, cfg.Serializers["s"]))

	names := make([]string, len(cfg.APIs))
	for i, a := range cfg.APIs {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"one", "two", "three"}, names)

	one, ok := cfg.Lookup("one")
	require.True(t, ok)
	assert.Equal(t, "second", one.URL)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(DirEnv, t.TempDir())

	_, err := Load(context.Background())
	assert.ErrorIs(t, err, ErrNoConfig)

	_, err = Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownConfig)
}

func TestDir(t *testing.T) {
	t.Setenv(DirEnv, "/tmp/apiout-configs")
	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/apiout-configs", dir)
}
