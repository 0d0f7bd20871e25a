package grid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Len(t, Enumerate(cfg.Outer, cfg.Inner), 320)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, "outer: 2\ninner: 3\ntemplate_dir: /tmpl\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Outer)
	assert.Equal(t, 3, cfg.Inner)
	assert.Equal(t, 13, cfg.BlockStride)
	assert.Equal(t, []string{"/tmpl/Makefile", "/tmpl/pr_scaleup_kernelbc.cpp"}, cfg.TemplatePaths())
	assert.Len(t, cfg.Rules, 3)
}

func TestLoadConfig_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "outr: 2\n")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "outr")
}

func TestLoadConfig_ConfigFileMustBeATemplate(t *testing.T) {
	path := writeConfig(t, "templates: [kernel.cpp]\n")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "not among the templates")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative bounds", func(c *Config) { c.Outer = -1 }, "non-negative"},
		{"no templates", func(c *Config) { c.Templates = nil }, "no template files"},
		{"empty match", func(c *Config) { c.Rules = []RuleConfig{{Replace: "x"}} }, "empty match"},
		{"bad rule template", func(c *Config) { c.Rules = []RuleConfig{{Match: "x", Replace: "{{"}} }, "rule 0"},
		{"bad script", func(c *Config) { c.Script = "{{.Path" }, "launch script"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}
