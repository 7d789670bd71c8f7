package node

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
)

// Config provides common options to set up a node.
type Config struct {
	// ID names the node in telemetry topics.
	ID string
	// Address is the node address on the link.
	Address uint
	// Interval paces the control loop.
	Interval time.Duration
	// Increment is how much the clock advances per tick.
	Increment uint
	// SlotsFile is a YAML slot table replacing the built-in one.
	SlotsFile string
	// LinkURL connects the bus to other nodes, e.g. serial:///dev/ttyS0.
	LinkURL string
	// TelemetryURL is the MQTT broker receiving telemetry,
	// e.g. mqtt://host:port/topic-prefix
	TelemetryURL string
	// LockLease bounds how many passes a module may hold the bus lock.
	LockLease uint
}

var defaultConfig = Config{
	Address:   0x20,
	Interval:  time.Millisecond,
	Increment: uint(clock.DefaultIncrement),
}

func init() {
	if val := os.Getenv("MINUT_ADDRESS"); val != "" {
		if n, err := strconv.ParseUint(val, 0, 8); err == nil {
			defaultConfig.Address = uint(n)
		}
	}
	if val := os.Getenv("MINUT_SLOTS"); val != "" {
		defaultConfig.SlotsFile = val
	}
	if val := os.Getenv("MINUT_LINK_URL"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("MINUT_TELEMETRY_URL"); val != "" {
		defaultConfig.TelemetryURL = val
	}
	if val := os.Getenv("MINUT_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
}

// MachineID retrieves an ID identifying the machine, hashed so it can
// be published.
func MachineID() string {
	id, err := machineid.ProtectedID("minut")
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return "minut"
	}
	return id[:12]
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Node ID")
	flag.UintVar(&defaultConfig.Address, "addr", defaultConfig.Address, "Node address on the link")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Control loop interval")
	flag.UintVar(&defaultConfig.Increment, "tick", defaultConfig.Increment, "Clock increment per tick in milliseconds")
	flag.StringVar(&defaultConfig.SlotsFile, "slots", defaultConfig.SlotsFile, "Slot table YAML file")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Link URL")
	flag.StringVar(&defaultConfig.TelemetryURL, "telemetry", defaultConfig.TelemetryURL, "Telemetry MQTT broker URL")
	flag.UintVar(&defaultConfig.LockLease, "lock-lease", defaultConfig.LockLease, "Bus lock lease in passes, 0 to disable")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// BusConfig is the dispatcher configuration.
func (c *Config) BusConfig() bus.Config {
	return bus.Config{Address: bus.Address(c.Address), LockLease: uint32(c.LockLease)}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Address >= uint(bus.Self) {
		return fmt.Errorf("invalid node address %#x", c.Address)
	}
	if c.Increment == 0 || c.Increment > uint(clock.Second) {
		return fmt.Errorf("invalid clock increment %d", c.Increment)
	}
	return nil
}
