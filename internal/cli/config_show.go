package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/constants"
	"github.com/mrz1836/osdep/internal/ctxutil"
)

// AddConfigCommand adds the config command and its show subcommand.
func AddConfigCommand(root *cobra.Command, global *GlobalFlags) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect osdep configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective osdep configuration with source annotations.

Shows the current configuration values and indicates where each value comes from:
  - default: Built-in default value
  - global: From ~/.osdep/config.yaml
  - project: From .osdep/config.yaml
  - env: From PSCORE_DEBUG_FILE* or an OSDEP_* environment variable

Examples:
  osdep config show             # Display config with sources
  osdep config show --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), global.Output)
		},
	}

	configCmd.AddCommand(showCmd)
	root.AddCommand(configCmd)
}

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value is a built-in default.
	SourceDefault ConfigSource = "default"
	// SourceGlobal indicates the value came from global config.
	SourceGlobal ConfigSource = "global"
	// SourceProject indicates the value came from project config.
	SourceProject ConfigSource = "project"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
)

// ConfigValueWithSource represents a configuration value with its source.
type ConfigValueWithSource struct {
	Value  any          `json:"value" yaml:"value"`
	Source ConfigSource `json:"source" yaml:"source"`
}

// AnnotatedConfig represents configuration with source annotations.
type AnnotatedConfig struct {
	Trace    map[string]ConfigValueWithSource `json:"trace" yaml:"trace"`
	Time     map[string]ConfigValueWithSource `json:"time" yaml:"time"`
	Entropy  map[string]ConfigValueWithSource `json:"entropy" yaml:"entropy"`
	Mutex    map[string]ConfigValueWithSource `json:"mutex" yaml:"mutex"`
	FileLoad map[string]ConfigValueWithSource `json:"fileload" yaml:"fileload"`
}

// configShowStyles contains styling for the config show command output.
type configShowStyles struct {
	header    lipgloss.Style
	section   lipgloss.Style
	key       lipgloss.Style
	value     lipgloss.Style
	sourceEnv lipgloss.Style
	sourcePrj lipgloss.Style
	sourceGbl lipgloss.Style
	sourceDef lipgloss.Style
	dim       lipgloss.Style
}

// newConfigShowStyles creates styles for config show command output.
func newConfigShowStyles() *configShowStyles {
	return &configShowStyles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D7FF")).
			MarginBottom(1),
		section: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")),
		key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D7FF")),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		sourceEnv: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")), // Red for env (highest precedence)
		sourcePrj: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")), // Yellow for project
		sourceGbl: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF87")), // Green for global
		sourceDef: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")), // Gray for default
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
	}
}

// runConfigShow executes the config show command.
func runConfigShow(ctx context.Context, w io.Writer, format string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	annotated := buildAnnotatedConfig(cfg)
	return render(w, format, annotated, func(w io.Writer) {
		writeAnnotatedConfig(w, annotated)
	})
}

// buildAnnotatedConfig creates an annotated configuration with source information.
func buildAnnotatedConfig(cfg *config.Config) *AnnotatedConfig {
	globalCfg := loadGlobalConfigOnly()
	projectCfg := loadProjectConfigOnly()
	src := func(key string, value any) ConfigValueWithSource {
		return determineSource(key, value, globalCfg, projectCfg)
	}

	return &AnnotatedConfig{
		Trace: map[string]ConfigValueWithSource{
			"file":        src("trace.file", cfg.Trace.File),
			"append_file": src("trace.append_file", cfg.Trace.AppendFile),
			"max_size_mb": src("trace.max_size_mb", cfg.Trace.MaxSizeMB),
			"max_backups": src("trace.max_backups", cfg.Trace.MaxBackups),
		},
		Time: map[string]ConfigValueWithSource{
			"sample_interval": src("time.sample_interval", cfg.Time.SampleInterval.String()),
		},
		Entropy: map[string]ConfigValueWithSource{
			"preferred":  src("entropy.preferred", cfg.Entropy.Preferred),
			"guaranteed": src("entropy.guaranteed", cfg.Entropy.Guaranteed),
			"max_reads":  src("entropy.max_reads", cfg.Entropy.MaxReads),
		},
		Mutex: map[string]ConfigValueWithSource{
			"shared_dir": src("mutex.shared_dir", cfg.Mutex.SharedLockDir()),
		},
		FileLoad: map[string]ConfigValueWithSource{
			"chunk_size": src("fileload.chunk_size", cfg.FileLoad.ChunkSize),
			"pool_limit": src("fileload.pool_limit", cfg.FileLoad.PoolLimit),
		},
	}
}

// configValues holds the flattened keys present in one config file.
type configValues map[string]any

// loadGlobalConfigOnly loads only the global config for source comparison.
func loadGlobalConfigOnly() configValues {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigOnly loads only the project config for source comparison.
func loadProjectConfigOnly() configValues {
	return loadConfigFile(config.ProjectConfigPath())
}

// loadConfigFile reads a YAML config file into dotted keys.
func loadConfigFile(path string) configValues {
	data, err := os.ReadFile(path) //nolint:gosec // Config file path
	if err != nil {
		return nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}

	result := make(configValues)
	flattenConfig("", raw, result)
	return result
}

func flattenConfig(prefix string, in map[string]any, out configValues) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenConfig(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// envNames returns the environment variables that can set key, in
// precedence order.
func envNames(key string) []string {
	name := constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	switch key {
	case "trace.file":
		return []string{constants.EnvTraceFile, name}
	case "trace.append_file":
		return []string{constants.EnvTraceFileAppend, name}
	default:
		return []string{name}
	}
}

// determineSource determines where a configuration value came from.
func determineSource(key string, value any, globalCfg, projectCfg configValues) ConfigValueWithSource {
	for _, env := range envNames(key) {
		if os.Getenv(env) != "" {
			return ConfigValueWithSource{Value: value, Source: SourceEnv}
		}
	}

	if _, exists := projectCfg[key]; exists {
		return ConfigValueWithSource{Value: value, Source: SourceProject}
	}
	if _, exists := globalCfg[key]; exists {
		return ConfigValueWithSource{Value: value, Source: SourceGlobal}
	}

	return ConfigValueWithSource{Value: value, Source: SourceDefault}
}

// writeAnnotatedConfig prints the configuration with source comments.
func writeAnnotatedConfig(w io.Writer, annotated *AnnotatedConfig) {
	styles := newConfigShowStyles()

	_, _ = fmt.Fprintln(w, styles.header.Render("Effective osdep Configuration"))
	_, _ = fmt.Fprintln(w, styles.dim.Render("Sources: ")+
		styles.sourceEnv.Render("env")+" > "+
		styles.sourcePrj.Render("project")+" > "+
		styles.sourceGbl.Render("global")+" > "+
		styles.sourceDef.Render("default"))
	_, _ = fmt.Fprintln(w)

	sections := []struct {
		name   string
		keys   []string
		values map[string]ConfigValueWithSource
	}{
		{"trace", []string{"file", "append_file", "max_size_mb", "max_backups"}, annotated.Trace},
		{"time", []string{"sample_interval"}, annotated.Time},
		{"entropy", []string{"preferred", "guaranteed", "max_reads"}, annotated.Entropy},
		{"mutex", []string{"shared_dir"}, annotated.Mutex},
		{"fileload", []string{"chunk_size", "pool_limit"}, annotated.FileLoad},
	}
	for _, s := range sections {
		_, _ = fmt.Fprintln(w, styles.section.Render(s.name+":"))
		for _, k := range s.keys {
			printConfigValue(w, styles, "  "+k, s.values[k])
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, styles.dim.Render("Configuration files:"))
	if globalPath, err := config.GlobalConfigPath(); err == nil {
		if _, err := os.Stat(globalPath); err == nil {
			_, _ = fmt.Fprintln(w, styles.dim.Render("  Global: ")+styles.sourceGbl.Render(globalPath))
		} else {
			_, _ = fmt.Fprintln(w, styles.dim.Render("  Global: ")+styles.dim.Render(globalPath+" (not found)"))
		}
	}

	projectPath := config.ProjectConfigPath()
	if _, err := os.Stat(projectPath); err == nil {
		absPath, _ := filepath.Abs(projectPath)
		_, _ = fmt.Fprintln(w, styles.dim.Render("  Project: ")+styles.sourcePrj.Render(absPath))
	} else {
		_, _ = fmt.Fprintln(w, styles.dim.Render("  Project: ")+styles.dim.Render(projectPath+" (not found)"))
	}
}

// printConfigValue prints a configuration value with its source annotation.
func printConfigValue(w io.Writer, styles *configShowStyles, key string, vs ConfigValueWithSource) {
	_, _ = fmt.Fprintf(w, "%s: %s  %s\n",
		styles.key.Render(key),
		styles.value.Render(formatConfigValue(vs.Value)),
		getSourceStyle(vs.Source, styles).Render("# "+string(vs.Source)))
}

// formatConfigValue converts a configuration value to a displayable string.
func formatConfigValue(value any) string {
	if s, ok := value.(string); ok {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	return fmt.Sprintf("%v", value)
}

// getSourceStyle returns the appropriate style for a config source.
func getSourceStyle(source ConfigSource, styles *configShowStyles) lipgloss.Style {
	switch source {
	case SourceEnv:
		return styles.sourceEnv
	case SourceProject:
		return styles.sourcePrj
	case SourceGlobal:
		return styles.sourceGbl
	case SourceDefault:
		return styles.sourceDef
	default:
		return styles.sourceDef
	}
}
