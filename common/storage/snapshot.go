package storage

import "time"

// EmptySnapshot returns a snapshot with every field at its documented default:
// sentinel strings, Unknown status, empty (non-nil) collections and zero counters.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Model:             Unavailable,
		SerialNumber:      Unavailable,
		OperationalStatus: StatusUnknown,
		ConsumableLevels:  map[string]int{},
		InputTrayStatus:   map[string]TrayStatus{},
		ActiveAlerts:      []string{},
	}
}

// Clone returns a deep copy of s. Nil collections come back empty, never nil.
func (s Snapshot) Clone() Snapshot {
	out := s

	out.ConsumableLevels = make(map[string]int, len(s.ConsumableLevels))
	for k, v := range s.ConsumableLevels {
		out.ConsumableLevels[k] = v
	}

	out.InputTrayStatus = make(map[string]TrayStatus, len(s.InputTrayStatus))
	for k, v := range s.InputTrayStatus {
		out.InputTrayStatus[k] = v
	}

	out.ActiveAlerts = make([]string, len(s.ActiveAlerts))
	copy(out.ActiveAlerts, s.ActiveAlerts)

	return out
}

// Degrade builds the snapshot for a device that could not be reached: every
// field is carried over from previous and only the status becomes Offline.
// A nil previous yields the empty defaults. previous is never modified.
func Degrade(previous *Snapshot, polledAt time.Time) Snapshot {
	var out Snapshot
	if previous == nil {
		out = EmptySnapshot()
	} else {
		out = previous.Clone()
	}
	out.OperationalStatus = StatusOffline
	out.PolledAt = polledAt
	return out
}

// HasColorConsumable reports whether any of Cyan, Magenta or Yellow is present
// in levels, regardless of its value.
func HasColorConsumable(levels map[string]int) bool {
	for _, key := range []string{ColorCyan, ColorMagenta, ColorYellow} {
		if _, ok := levels[key]; ok {
			return true
		}
	}
	return false
}
