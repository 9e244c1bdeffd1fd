package main

import (
	"fmt"
	"time"

	"github.com/VanshMandot/LanForge/internal/config"
	"github.com/VanshMandot/LanForge/internal/coordinator"
	"github.com/VanshMandot/LanForge/internal/peer"
)

// runHost starts a coordinator on the well-known port, connects this
// process to it as a client, creates a room, and begins announcing.
func runHost(cfg config.Config, name string) error {
	coord := coordinator.New()
	go func() {
		if err := coord.Start(":" + cfg.CoordinatorPort); err != nil {
			fmt.Println("lanforge: coordinator listener exited:", err)
		}
	}()
	time.Sleep(50 * time.Millisecond) // let the listener bind

	cfg.ClientName = name
	cfg.ServerURL = "ws://localhost:" + cfg.CoordinatorPort
	p := peer.New(cfg)
	if err := p.Start(cfg.ServerURL); err != nil {
		return fmt.Errorf("connecting to local coordinator: %w", err)
	}

	if !waitFor(func() bool { return p.State() == peer.StateConnected }, 5*time.Second) {
		return fmt.Errorf("timed out waiting to connect to local coordinator")
	}
	p.CreateRoom("", 0)

	var joinCode string
	waitFor(func() bool {
		snap, ok := p.Snapshot()
		if !ok {
			return false
		}
		joinCode = snap.Room.JoinCode
		return joinCode != ""
	}, 5*time.Second)

	fmt.Printf("Hosting room, join code: %s\n", joinCode)
	return runSession(p)
}
