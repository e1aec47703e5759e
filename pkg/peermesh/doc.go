/*
Package peermesh tracks per-peer session state for a peer-to-peer mesh
layer.

# Overview

A mesh transport fires callbacks from many goroutines at once:
discovery finds peers, connections change state, data channels open
and close, and the application connects and disconnects on its own
schedule. All of them need to read and mutate the same per-peer
session object. peermesh provides the registry that makes this safe:

  - One Session per logical peer, never duplicated, even when
    concurrent callers race to create it
  - Atomic fetch-or-create-then-mutate as a single operation, so there
    is no get+put window to race through
  - Two lookup dimensions over the same sessions: the transient
    SessionID of the current connection and the stable identity that
    survives reconnects

# Basic Usage

Connectivity callbacks update sessions through the index:

	index := peermesh.NewSessionIndex(
	    peermesh.WithLogger(slog.Default()),
	)

	// Discovery callback: peer found.
	index.UpdateBySessionID(id, func(old *peermesh.Session) (*peermesh.Session, error) {
	    if old == nil {
	        return peermesh.NewSession(id, identity), nil
	    }
	    return old.Reconnected(id), nil
	})

	// Connection-state callback: connected.
	index.UpdateByIdentity(identity, func(old *peermesh.Session) (*peermesh.Session, error) {
	    if old == nil {
	        return nil, nil // peer already evicted, ignore
	    }
	    return old.WithState(peermesh.StateConnected), nil
	})

Sessions handed out by the index are snapshots; all mutation goes back
through an update callback, which runs under the peer's key lock.

# Eviction

A Sweeper evicts sessions for peers that disconnected and never came
back, optionally remembering them in a peerstore.Store:

	sweeper := peermesh.NewSweeper(index, settings.SweepInterval, settings.IdleTimeout)
	go sweeper.Run(ctx)

# Subpackages

  - registry: the generic per-key atomic update primitive
  - event: lifecycle event bus (created, state changed, evicted)
  - peerstore: known-peer persistence (memory, SQLite)
  - relay: stream pumps bridging mesh streams to local sockets
  - config: configuration loading
  - observability: slog helpers, OpenTelemetry metrics and tracing
*/
package peermesh
