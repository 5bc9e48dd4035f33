package poller

import (
	"context"
	"fmt"
	"strings"

	"printmonitor/agent/scanner/vendor"
	"printmonitor/common/snmp/oids"
	commonstorage "printmonitor/common/storage"
)

// alertInactive is the alert state value meaning "no alert".
const alertInactive = "0"

// ExtractAlerts pairs the alert description and alert state columns by
// position and returns the descriptions of active alerts in walk order.
// Blank descriptions are dropped. The result is never nil.
func ExtractAlerts(ctx context.Context, src vendor.Source, set oids.Set) []string {
	descs := src.Walk(ctx, set.AlertDescr)
	states := src.Walk(ctx, set.AlertState)

	out := []string{}
	for i := 0; i < min(len(descs), len(states)); i++ {
		if strings.TrimSpace(states[i].Value) == alertInactive {
			continue
		}
		if desc := strings.TrimSpace(descs[i].Value); desc != "" {
			out = append(out, desc)
		}
	}
	return out
}

// ExtractTrays maps every entry of the tray status column. A tray is keyed by
// the entry at the same position in the tray name column when that name is
// non-blank and not taken yet; otherwise by "Tray N", N being the 1-based
// position in the status walk.
func ExtractTrays(ctx context.Context, src vendor.Source, set oids.Set) map[string]commonstorage.TrayStatus {
	statuses := src.Walk(ctx, set.TrayStatus)
	out := make(map[string]commonstorage.TrayStatus, len(statuses))
	if len(statuses) == 0 {
		return out
	}
	names := src.Walk(ctx, set.TrayName)

	for i, st := range statuses {
		key := ""
		if i < len(names) {
			key = strings.TrimSpace(names[i].Value)
		}
		if _, taken := out[key]; key == "" || taken {
			key = trayLabel(out, i+1)
		}
		out[key] = commonstorage.ParseTrayStatus(st.Value)
	}
	return out
}

func trayLabel(taken map[string]commonstorage.TrayStatus, position int) string {
	label := fmt.Sprintf("Tray %d", position)
	for n := 2; ; n++ {
		if _, ok := taken[label]; !ok {
			return label
		}
		label = fmt.Sprintf("Tray %d (%d)", position, n)
	}
}
