package room

import "hash/fnv"

// hashDeviceID is the fixed tiebreaker for election ties: any
// deterministic function works as long as every peer agrees, so LanForge
// uses FNV-1a the way torua's shard_registry.go hashes shard keys.
func hashDeviceID(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

// Elect returns the deviceId of the member that wins host election under
// the total order (joinOrder asc, hash(deviceId) asc). Given the same
// member list, every peer computes the same winner regardless of who asks.
// ok is false if members is empty.
func Elect(members []Member) (deviceID string, ok bool) {
	if len(members) == 0 {
		return "", false
	}
	best := members[0]
	for _, m := range members[1:] {
		if electionLess(m, best) {
			best = m
		}
	}
	return best.DeviceID, true
}

// ElectExcluding runs Elect after pruning the named device from the input:
// prune the lost hostDeviceId from the cached snapshot before sorting, so
// a dead host never wins its own succession.
func ElectExcluding(members []Member, excludeDeviceID string) (deviceID string, ok bool) {
	pruned := make([]Member, 0, len(members))
	for _, m := range members {
		if m.DeviceID == excludeDeviceID {
			continue
		}
		pruned = append(pruned, m)
	}
	return Elect(pruned)
}

func electionLess(a, b Member) bool {
	if a.JoinOrder != b.JoinOrder {
		return a.JoinOrder < b.JoinOrder
	}
	return hashDeviceID(a.DeviceID) < hashDeviceID(b.DeviceID)
}
