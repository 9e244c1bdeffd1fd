package peer

import (
	"log"
	"time"

	"github.com/VanshMandot/LanForge/internal/coordinator"
	"github.com/VanshMandot/LanForge/internal/discovery"
	"github.com/VanshMandot/LanForge/internal/room"
	"github.com/VanshMandot/LanForge/internal/wire"
)

// handleTransportClosed is the sole entry point into the migration state
// machine: Connected -> ServerLost, guarded by isHandlingLoss so a
// transport that reports both a close and an error for the same
// disconnect only migrates once.
func (p *Peer) handleTransportClosed() {
	p.mu.Lock()
	if p.isHandlingLoss {
		p.mu.Unlock()
		return
	}
	p.isHandlingLoss = true
	p.state = StateServerLost
	snap := p.cachedSnapshot
	clientID := p.clientID
	p.mu.Unlock()

	log.Println("[peer] server lost, entering migration")

	if snap == nil || clientID == "" || clientID == wire.ClientIDPending {
		log.Println("[peer] migration abandoned: no cached snapshot or clientId")
		p.mu.Lock()
		p.state = StateDead
		p.mu.Unlock()
		p.Events.Publish(Event{Kind: EventError, Text: ErrMigrationAbandoned.Error()})
		return
	}

	winner, ok := room.ElectExcluding(snap.Room.Members, snap.Room.HostDeviceID)
	if !ok {
		log.Println("[peer] migration abandoned: no surviving members to elect")
		p.mu.Lock()
		p.state = StateDead
		p.mu.Unlock()
		p.Events.Publish(Event{Kind: EventError, Text: ErrMigrationAbandoned.Error()})
		return
	}

	if winner == p.deviceID {
		p.mu.Lock()
		p.state = StateBecomingHost
		p.mu.Unlock()
		p.becomeHost(*snap)
		return
	}

	p.mu.Lock()
	p.state = StateAwaitingHost
	p.mu.Unlock()
	p.awaitHost(*snap)
}

// becomeHost is migration state Becoming-Host: reconcile the cached
// snapshot (dropping the dead host, promoting the elected winner — the
// same election the room package already runs on any host departure),
// start a local coordinator seeded with the result, start announcing, and
// reconnect this peer to itself as a client.
func (p *Peer) becomeHost(snap room.Snapshot) {
	tmp := room.NewStore()
	if _, err := tmp.RestoreRoom(snap); err != nil {
		log.Printf("[peer] becomeHost: restoring cached snapshot: %v\n", err)
		p.abandon()
		return
	}
	r, destroyed, ok := tmp.LeaveRoom(snap.Room.HostDeviceID)
	if !ok || destroyed {
		log.Println("[peer] becomeHost: no members survive after dropping dead host")
		p.abandon()
		return
	}
	seed, err := tmp.MakeSnapshot(r.RoomID)
	if err != nil {
		log.Printf("[peer] becomeHost: snapshotting reconciled room: %v\n", err)
		p.abandon()
		return
	}

	coord, err := coordinator.NewFromSnapshot(seed)
	if err != nil {
		log.Printf("[peer] becomeHost: seeding coordinator: %v\n", err)
		p.abandon()
		return
	}

	p.mu.Lock()
	p.ownCoordinator = coord
	p.mu.Unlock()

	go func() {
		if err := coord.Start(":" + p.cfg.CoordinatorPort); err != nil {
			log.Printf("[coordinator] listener exited: %v\n", err)
		}
	}()
	time.Sleep(50 * time.Millisecond) // let the listener bind before we dial ourselves

	loopbackURL := "ws://localhost:" + p.cfg.CoordinatorPort
	if err := p.connect(loopbackURL); err != nil {
		log.Printf("[peer] becomeHost: reconnecting to own coordinator: %v\n", err)
		return
	}

	p.mu.Lock()
	p.cachedSnapshot = &seed
	p.mu.Unlock()

	// No mutation is coming to trigger the usual broadcastSnapshot ->
	// handleSnapshot -> startAnnouncing path: HELLO only draws a WELCOME.
	// Announce directly once our own WELCOME has assigned a clientId.
	waitForClientID(p, 2*time.Second)
	p.startAnnouncing(seed)

	log.Printf("[peer] became host of room %s\n", r.RoomID)
}

// waitForClientID polls until connect's HELLO/WELCOME round trip has
// assigned a real clientId, or timeout elapses.
func waitForClientID(p *Peer, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if id := p.currentClientID(); id != "" && id != wire.ClientIDPending {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// awaitHost is migration state Awaiting-Host: listen for the elected
// winner's announcement and reconnect to it, falling back to the
// sole-survivor policy (become host ourselves) if nothing matches within
// MigrationTimeout.
func (p *Peer) awaitHost(snap room.Snapshot) {
	disc := discovery.NewDiscoverer(p.cfg.DiscoveryPort, func(host discovery.DiscoveredHost) {
		p.onHostDiscovered(snap, host)
	})
	if err := disc.Start(); err != nil {
		log.Printf("[peer] awaitHost: starting discoverer: %v\n", err)
		p.becomeHost(snap)
		return
	}

	p.mu.Lock()
	p.discoverer = disc
	p.migrationTimer = time.AfterFunc(MigrationTimeout, func() {
		p.migrationTimeout(snap)
	})
	p.mu.Unlock()
}

func (p *Peer) onHostDiscovered(snap room.Snapshot, host discovery.DiscoveredHost) {
	if snap.Room.RoomID != "" && host.RoomID != snap.Room.RoomID {
		return
	}

	p.mu.Lock()
	disc := p.discoverer
	timer := p.migrationTimer
	p.discoverer = nil
	p.migrationTimer = nil
	p.mu.Unlock()

	if disc != nil {
		disc.Stop()
	}
	if timer != nil {
		timer.Stop()
	}

	if err := p.connect(serverURLFor(host.IP, host.Port)); err != nil {
		log.Printf("[peer] reconnecting to discovered host: %v\n", err)
	}
}

// migrationTimeout fires when Awaiting-Host times out with no matching
// announcement: the sole-survivor policy.
func (p *Peer) migrationTimeout(snap room.Snapshot) {
	p.mu.Lock()
	disc := p.discoverer
	p.discoverer = nil
	p.migrationTimer = nil
	p.mu.Unlock()

	if disc != nil {
		disc.Stop()
	}

	log.Println("[peer] no matching host discovered, becoming host (sole survivor)")
	p.mu.Lock()
	p.state = StateBecomingHost
	p.mu.Unlock()
	p.becomeHost(snap)
}

func (p *Peer) abandon() {
	p.mu.Lock()
	p.state = StateDead
	p.mu.Unlock()
	p.Events.Publish(Event{Kind: EventError, Text: ErrMigrationAbandoned.Error()})
}
