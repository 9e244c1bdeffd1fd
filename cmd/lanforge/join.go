package main

import (
	"fmt"
	"time"

	"github.com/VanshMandot/LanForge/internal/config"
	"github.com/VanshMandot/LanForge/internal/peer"
)

// runJoin connects to the configured coordinator, joins the named room by
// its join code, and hands off to the interactive session.
func runJoin(cfg config.Config, name, joinCode string) error {
	cfg.ClientName = name
	p := peer.New(cfg)
	if err := p.Start(cfg.ServerURL); err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.ServerURL, err)
	}

	if !waitFor(func() bool { return p.State() == peer.StateConnected }, 5*time.Second) {
		return fmt.Errorf("timed out waiting to connect to %s", cfg.ServerURL)
	}
	p.JoinRoom(joinCode)

	if !waitFor(func() bool {
		snap, ok := p.Snapshot()
		return ok && snap.Room.JoinCode == joinCode
	}, 5*time.Second) {
		return fmt.Errorf("timed out joining room %s", joinCode)
	}

	fmt.Printf("Joined room %s\n", joinCode)
	return runSession(p)
}
