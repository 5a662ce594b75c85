package node

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robotalks/dualcore/pkg/hsem"
)

// Config provides options to run one core.
type Config struct {
	// Core is "cm7" (primary) or "cm4" (secondary).
	Core string
	// SHMPath is the file mapped as shared memory.
	SHMPath string
	// ConsoleURL selects the console transport, e.g. tty:, stdio:,
	// mqtt://host:port/prefix, ws://:8080/console.
	ConsoleURL string
	// MonitorURL is the MQTT broker receiving frame copies, optional.
	// e.g. mqtt://host:port/topic-prefix
	MonitorURL string
	// Interval is the polling period of the main loop.
	Interval time.Duration
	// BootPoll is the polling period during the boot handshake.
	BootPoll time.Duration
	// BufferSize is the console line capacity.
	BufferSize int
	// Prompt defaults to "<core>> ".
	Prompt string
	// LockSpin bounds the critical section busy-wait, 0 waits forever.
	LockSpin int

	Map MemoryMap
}

var defaultConfig = Config{
	Core:       hsem.CoreCM7.String(),
	SHMPath:    "/dev/shm/dualcore",
	ConsoleURL: "tty:",
	Interval:   10 * time.Millisecond,
	BootPoll:   10 * time.Millisecond,
	BufferSize: 1024,
	Map:        DefaultMemoryMap(),
}

func init() {
	if val := os.Getenv("DUALCORE_CORE"); val != "" {
		defaultConfig.Core = val
	}
	if val := os.Getenv("DUALCORE_SHM"); val != "" {
		defaultConfig.SHMPath = val
	}
	if val := os.Getenv("DUALCORE_CONSOLE"); val != "" {
		defaultConfig.ConsoleURL = val
	}
	if val := os.Getenv("DUALCORE_MONITOR_URL"); val != "" {
		defaultConfig.MonitorURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Core, "core", defaultConfig.Core, "Core to run: cm7 or cm4.")
	flag.StringVar(&defaultConfig.SHMPath, "shm", defaultConfig.SHMPath, "Shared memory file.")
	flag.StringVar(&defaultConfig.ConsoleURL, "console", defaultConfig.ConsoleURL, "Console transport URL.")
	flag.StringVar(&defaultConfig.MonitorURL, "monitor", defaultConfig.MonitorURL, "MQTT broker URL for frame monitoring.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Main loop polling interval.")
	flag.IntVar(&defaultConfig.BufferSize, "line-size", defaultConfig.BufferSize, "Console line capacity.")
	flag.StringVar(&defaultConfig.Prompt, "prompt", defaultConfig.Prompt, "Console prompt.")
	flag.IntVar(&defaultConfig.LockSpin, "lock-spin", defaultConfig.LockSpin, "Critical section spin bound, 0 waits forever.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// CoreID parses Core.
func (c *Config) CoreID() (hsem.CoreID, error) {
	return hsem.ParseCoreID(c.Core)
}

// PromptOrDefault returns Prompt or "<core>> ".
func (c *Config) PromptOrDefault() string {
	if c.Prompt != "" {
		return c.Prompt
	}
	return c.Core + "> "
}

// Validate checks the config.
func (c *Config) Validate() error {
	if _, err := c.CoreID(); err != nil {
		return err
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid console buffer size %d", c.BufferSize)
	}
	return c.Map.Validate()
}
