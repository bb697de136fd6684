package supervisor

import (
	"path/filepath"
	"strings"
	"time"
)

// Variant selects how a program's argv is assembled.
type Variant int

const (
	// VariantStandard gets the common flags plus the program's own extra flags.
	VariantStandard Variant = iota
	// VariantWeather gets the weather flag set (font path, API key) instead.
	VariantWeather
)

// ProgramSpec is per-program launch configuration.
type ProgramSpec struct {
	ExtraArgs []string
}

// WeatherSpec describes how the weather display is invoked.
type WeatherSpec struct {
	Program    string
	Args       []string
	FontFlag   string
	FontPath   string
	APIKeyFlag string
	APIKey     string
}

// Config holds everything the supervisor needs to build and manage commands.
type Config struct {
	ScriptsDir string
	CommonArgs []string
	Programs   map[string]ProgramSpec
	Weather    WeatherSpec
	StartGrace time.Duration
	KillWait   time.Duration
}

// Command is a fully resolved argv. No shell is involved.
type Command struct {
	Path string
	Args []string
}

// Argv returns the path followed by the arguments.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// ProgramPath resolves a bare program name against the scripts directory.
func (c Config) ProgramPath(name string) string {
	return filepath.Join(c.ScriptsDir, name)
}

// BuildCommand assembles the argv for name. Slices are copied so callers can't
// alias the configuration.
func (c Config) BuildCommand(name string, variant Variant) Command {
	var args []string
	switch variant {
	case VariantWeather:
		args = append(args, c.Weather.Args...)
		if c.Weather.FontFlag != "" && c.Weather.FontPath != "" {
			args = append(args, c.Weather.FontFlag, c.Weather.FontPath)
		}
		if c.Weather.APIKeyFlag != "" && c.Weather.APIKey != "" {
			args = append(args, c.Weather.APIKeyFlag, c.Weather.APIKey)
		}
	default:
		args = append(args, c.CommonArgs...)
		if spec, ok := c.programSpec(name); ok {
			args = append(args, spec.ExtraArgs...)
		}
	}
	return Command{Path: c.ProgramPath(name), Args: args}
}

// programSpec looks name up as written, then lowercased: program keys read
// from the config file arrive lowercased.
func (c Config) programSpec(name string) (ProgramSpec, bool) {
	if spec, ok := c.Programs[name]; ok {
		return spec, true
	}
	spec, ok := c.Programs[strings.ToLower(name)]
	return spec, ok
}
