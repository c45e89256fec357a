// Package config holds the settings of a simulation run. Settings come from
// the defaults, then a YAML file, then VMSIM_* environment variables, then
// command-line flags; each layer overrides the previous one.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"gopkg.in/yaml.v3"
)

// Config is the full set of settings of a run.
type Config struct {
	AddressSpaceSize   uint64 `yaml:"address_space_size"`
	PageSize           uint64 `yaml:"page_size"`
	FrameCount         uint64 `yaml:"frames"`
	PhysicalMemorySize uint64 `yaml:"physical_memory_size"`
	Policy             string `yaml:"policy"`
	Seed               uint64 `yaml:"seed"`

	// SwapPath is the swap file. An in-memory swap is used when empty.
	SwapPath string `yaml:"swap"`

	LogLevel    string `yaml:"log_level"`
	RecordPath  string `yaml:"record"`
	Monitor     bool   `yaml:"monitor"`
	MonitorPort int    `yaml:"monitor_port"`
	FlushOnExit bool   `yaml:"flush_on_exit"`
}

// Default returns the settings of a run that nothing overrides: 64 KiB of
// virtual memory in 256-byte pages, 256 frames and FIFO replacement.
func Default() Config {
	return Config{
		AddressSpaceSize: 65536,
		PageSize:         256,
		FrameCount:       256,
		Policy:           replacement.PolicyFIFO,
		LogLevel:         "info",
		FlushOnExit:      true,
	}
}

// LoadFile reads a YAML file on top of the defaults. Unknown keys are errors.
func LoadFile(path string) (Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	err = decoder.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("%w: %s: %v", vm.ErrConfiguration, path, err)
	}

	return c, nil
}

// ApplyEnv overrides the settings with the VMSIM_* variables that lookup
// finds. os.LookupEnv is the usual lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	uints := []struct {
		name string
		dst  *uint64
	}{
		{"VMSIM_ADDRESS_SPACE", &c.AddressSpaceSize},
		{"VMSIM_PAGE_SIZE", &c.PageSize},
		{"VMSIM_FRAMES", &c.FrameCount},
		{"VMSIM_PHYSICAL_MEMORY", &c.PhysicalMemorySize},
		{"VMSIM_SEED", &c.Seed},
	}

	for _, u := range uints {
		value, ok := lookup(u.name)
		if !ok {
			continue
		}

		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return envError(u.name, value, err)
		}

		*u.dst = n
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"VMSIM_POLICY", &c.Policy},
		{"VMSIM_SWAP", &c.SwapPath},
		{"VMSIM_LOG_LEVEL", &c.LogLevel},
		{"VMSIM_RECORD", &c.RecordPath},
	}

	for _, s := range strs {
		if value, ok := lookup(s.name); ok {
			*s.dst = value
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"VMSIM_MONITOR", &c.Monitor},
		{"VMSIM_FLUSH_ON_EXIT", &c.FlushOnExit},
	}

	for _, b := range bools {
		value, ok := lookup(b.name)
		if !ok {
			continue
		}

		v, err := strconv.ParseBool(value)
		if err != nil {
			return envError(b.name, value, err)
		}

		*b.dst = v
	}

	if value, ok := lookup("VMSIM_MONITOR_PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return envError("VMSIM_MONITOR_PORT", value, err)
		}

		c.MonitorPort = port
	}

	return nil
}

func envError(name, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %v", vm.ErrConfiguration, name, value, err)
}

// Validate checks the settings that can be checked without building the
// simulation. The MMU builder checks the geometry against the swap file.
func (c Config) Validate() error {
	switch {
	case c.PageSize == 0:
		return invalid("page size must be positive")
	case c.AddressSpaceSize == 0:
		return invalid("address space size must be positive")
	case c.AddressSpaceSize%c.PageSize != 0:
		return invalid("address space size %d is not a multiple of "+
			"page size %d", c.AddressSpaceSize, c.PageSize)
	case c.FrameCount == 0:
		return invalid("frame count must be positive")
	case c.FrameCount > math.MaxInt/c.PageSize:
		return invalid("%d frames of %d bytes cannot be allocated",
			c.FrameCount, c.PageSize)
	case c.MonitorPort < 0 || c.MonitorPort > 65535:
		return invalid("monitor port %d is out of range", c.MonitorPort)
	}

	if _, err := replacement.NewReplacer(c.Policy, c.Seed); err != nil {
		return fmt.Errorf("%w: %v", vm.ErrConfiguration, err)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// NumPages returns the number of virtual pages.
func (c Config) NumPages() uint64 {
	return c.AddressSpaceSize / c.PageSize
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format,
		append([]any{vm.ErrConfiguration}, args...)...)
}

// ParseLogLevel converts debug, info, warn or error into a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q",
			vm.ErrConfiguration, level)
	}
}
