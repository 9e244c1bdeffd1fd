package main

import (
	"fmt"
	"time"

	"github.com/VanshMandot/LanForge/internal/config"
	"github.com/VanshMandot/LanForge/internal/discovery"
)

// runDiscover listens for room announcements for a fixed window and prints
// each distinct host found.
func runDiscover(cfg config.Config) error {
	found := 0
	disc := discovery.NewDiscoverer(cfg.DiscoveryPort, func(host discovery.DiscoveredHost) {
		found++
		fmt.Printf("%s\tjoin code %s\t%s:%d\n", host.RoomID, host.JoinCode, host.IP, host.Port)
	})
	if err := disc.Start(); err != nil {
		return fmt.Errorf("starting discoverer: %w", err)
	}
	defer disc.Stop()

	fmt.Println("Listening for LAN rooms...")
	time.Sleep(5 * time.Second)

	if found == 0 {
		fmt.Println("No rooms found.")
	}
	return nil
}
