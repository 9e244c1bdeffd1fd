package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/VanshMandot/LanForge/internal/peer"
)

// waitFor polls cond until it is true or the timeout elapses.
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// printEvents drains a peer's UI event bus to stdout until it is closed.
func printEvents(ch chan peer.Event) {
	for ev := range ch {
		switch ev.Kind {
		case peer.EventChat:
			fmt.Println(ev.Text)
		case peer.EventError:
			fmt.Fprintln(os.Stderr, "error:", ev.Text)
		case peer.EventKicked:
			fmt.Fprintln(os.Stderr, "kicked:", ev.Text)
		case peer.EventSnapshotUpdated:
			// Silent: session commands don't render the roster on every tick.
		}
	}
}

// runSession reads stdin lines for the remainder of the process: bare text
// becomes CHAT, "/kick <deviceId>" becomes KICK.
func runSession(p *peer.Peer) error {
	events := p.Events.Subscribe()
	go printEvents(events)
	defer p.Events.Unsubscribe(events)
	defer p.Stop()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/kick ") {
			target := strings.TrimSpace(strings.TrimPrefix(line, "/kick "))
			p.Kick(target)
			continue
		}
		p.SendChat(line)
	}
	return scanner.Err()
}
