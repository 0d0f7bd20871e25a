package grid

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Config holds the grid generator settings, loadable from a YAML file.
// Zero-valued fields in the file keep the defaults.
type Config struct {
	Outer       int          `yaml:"outer"`
	Inner       int          `yaml:"inner"`
	BlockStride int          `yaml:"block_stride"`
	TemplateDir string       `yaml:"template_dir"`
	Templates   []string     `yaml:"templates"`
	ConfigFile  string       `yaml:"config_file"`
	Rules       []RuleConfig `yaml:"rules"`
	Script      string       `yaml:"script"`
}

// RuleConfig is one patch rule. Replace is a template over Values.
type RuleConfig struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
}

// DefaultScript cds into the workspace, sets up the bladerunner toolchain and
// builds the profile.
const DefaultScript = `cd {{.Path}}
module load synopsys-2020/synopsys-vcs-R-2020.12
export BRG_BSG_BLADERUNNER_DIR=/work/global/zz546/bigblade-6.4
export BSG_MACHINE=pod_X1Y1_ruche_X16Y8_hbm_one_pseudo_channel
export BSG_MACHINE_PATH=$BRG_BSG_BLADERUNNER_DIR/bsg_replicant/machines/$BSG_MACHINE
make profile.log > out.log 2>&1
`

// DefaultConfig returns the pagerank scale-up grid: 64 pods by 5 kernel
// blocks, 13 blocks apart.
func DefaultConfig() *Config {
	return &Config{
		Outer:       64,
		Inner:       5,
		BlockStride: 13,
		TemplateDir: ".",
		Templates:   []string{"Makefile", "pr_scaleup_kernelbc.cpp"},
		ConfigFile:  "Makefile",
		Rules: []RuleConfig{
			{Match: "CXXDEFINES += -DSIM_CURRENT_POD=1", Replace: "CXXDEFINES += -DSIM_CURRENT_POD={{.HostPod}}"},
			{Match: "RISCV_DEFINES += -DSIM_KERNEL_CURRENT_POD=1", Replace: "RISCV_DEFINES += -DSIM_KERNEL_CURRENT_POD={{.KernelPod}}"},
			{Match: "RISCV_DEFINES += -DSIM_KERNEL_CURRENT_BLOCK=1", Replace: "RISCV_DEFINES += -DSIM_KERNEL_CURRENT_BLOCK={{.KernelBlock}}"},
		},
		Script: DefaultScript,
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are errors.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grid config: %w", err)
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing grid config: %w", err)
	}
	cfg.merge(&file)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.Outer != 0 {
		c.Outer = o.Outer
	}
	if o.Inner != 0 {
		c.Inner = o.Inner
	}
	if o.BlockStride != 0 {
		c.BlockStride = o.BlockStride
	}
	if o.TemplateDir != "" {
		c.TemplateDir = o.TemplateDir
	}
	if len(o.Templates) > 0 {
		c.Templates = o.Templates
	}
	if o.ConfigFile != "" {
		c.ConfigFile = o.ConfigFile
	}
	if len(o.Rules) > 0 {
		c.Rules = o.Rules
	}
	if o.Script != "" {
		c.Script = o.Script
	}
}

// Validate checks bounds, file lists and that every template parses.
func (c *Config) Validate() error {
	if c.Outer < 0 || c.Inner < 0 {
		return fmt.Errorf("grid bounds must be non-negative, got outer=%d inner=%d", c.Outer, c.Inner)
	}
	if len(c.Templates) == 0 {
		return fmt.Errorf("no template files listed")
	}
	listed := false
	for _, t := range c.Templates {
		if filepath.Base(t) == c.ConfigFile {
			listed = true
		}
	}
	if !listed {
		return fmt.Errorf("config file %q is not among the templates", c.ConfigFile)
	}
	for i, r := range c.Rules {
		if r.Match == "" {
			return fmt.Errorf("rule %d has an empty match", i)
		}
		if _, err := template.New("rule").Option("missingkey=error").Parse(r.Replace); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if _, err := ParseScript(c.Script); err != nil {
		return err
	}
	return nil
}

// TemplatePaths resolves the template files against TemplateDir.
func (c *Config) TemplatePaths() []string {
	paths := make([]string, len(c.Templates))
	for i, t := range c.Templates {
		if filepath.IsAbs(t) {
			paths[i] = t
			continue
		}
		paths[i] = filepath.Join(c.TemplateDir, t)
	}
	return paths
}
