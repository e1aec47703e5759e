// Package config loads and reads mesh-layer configuration.
//
// Config wraps a map[string]any (typically decoded from a YAML or
// JSON file) and offers typed accessors with defaults. Keys use
// dotted paths into nested sections:
//
//	cfg, err := config.FromFile("mesh.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	interval := cfg.Duration("sweep.interval", 30*time.Second)
//	storePath := cfg.String("peerstore.path", "")
//
// for a file like:
//
//	sweep:
//	  interval: 30s
//	  idle_timeout: 5m
//	peerstore:
//	  path: ./peers.db
//
// Accessors never fail: a missing key or a value of the wrong type
// yields the supplied default, so partial configuration files are
// always usable.
package config
