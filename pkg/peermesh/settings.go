package peermesh

import (
	"time"

	"github.com/husseinmarah/peermesh/pkg/peermesh/config"
)

// Settings holds mesh-layer tunables, typically decoded from a
// configuration file via SettingsFromConfig.
type Settings struct {
	// SweepInterval is the time between stale-peer sweep passes.
	SweepInterval time.Duration

	// IdleTimeout is how long a disconnected session lingers before
	// the sweeper evicts it.
	IdleTimeout time.Duration

	// PeerStorePath is the SQLite file for remembered peers.
	// Empty disables persistence.
	PeerStorePath string

	// RelayBufferSize is the copy buffer for relay pumps, in bytes.
	RelayBufferSize int

	// EventBufferSize is the per-subscriber buffer of the lifecycle
	// event bus.
	EventBufferSize int
}

// DefaultSettings returns the defaults used when a value is absent
// from configuration.
func DefaultSettings() Settings {
	return Settings{
		SweepInterval:   30 * time.Second,
		IdleTimeout:     5 * time.Minute,
		PeerStorePath:   "",
		RelayBufferSize: 4 * 1024,
		EventBufferSize: 64,
	}
}

// SettingsFromConfig reads Settings from cfg, falling back to
// DefaultSettings for missing keys. Recognized keys:
//
//	sweep.interval      duration
//	sweep.idle_timeout  duration
//	peerstore.path      string
//	relay.buffer_size   int (bytes)
//	events.buffer_size  int
// LoadSettings reads Settings from the configuration file at path
// (YAML or JSON, chosen by extension).
func LoadSettings(path string) (Settings, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFromConfig(cfg), nil
}

func SettingsFromConfig(cfg config.Config) Settings {
	d := DefaultSettings()
	return Settings{
		SweepInterval:   cfg.Duration("sweep.interval", d.SweepInterval),
		IdleTimeout:     cfg.Duration("sweep.idle_timeout", d.IdleTimeout),
		PeerStorePath:   cfg.String("peerstore.path", d.PeerStorePath),
		RelayBufferSize: cfg.Int("relay.buffer_size", d.RelayBufferSize),
		EventBufferSize: cfg.Int("events.buffer_size", d.EventBufferSize),
	}
}
