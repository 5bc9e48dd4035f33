package oids

import (
	"fmt"
	"strings"
)

// This package centralizes the SNMP OIDs printmonitor queries. The constants
// follow the Host Resources, Printer, and Ricoh enterprise MIBs; the agent
// copies them into its configuration defaults so deployments can override any
// of them.

const (
	// --- System/Host Resources MIB (RFC 1213, RFC 2790) ---

	// SysDescr reports a human-readable system description; used as the model string.
	SysDescr = "1.3.6.1.2.1.1.1.0"
	// HrDeviceStatus is hrDeviceStatus.1: 1 unknown, 2 running, 3 warning, 4 testing, 5 down.
	HrDeviceStatus = "1.3.6.1.2.1.25.3.2.1.5.1"
)

const (
	// --- Printer MIB (RFC 3805) ---

	// PrtGeneralSerialNumber (prtGeneralSerialNumber.1) is the canonical serial.
	PrtGeneralSerialNumber = "1.3.6.1.2.1.43.5.1.1.17.1"

	// Input tray table columns.
	PrtInputStatus = "1.3.6.1.2.1.43.8.2.1.11"
	PrtInputName   = "1.3.6.1.2.1.43.8.2.1.13"

	// prtMarkerLifeCount instances, one per marker.
	PrtMarkerLifeCount1 = "1.3.6.1.2.1.43.10.2.1.4.1.1"
	PrtMarkerLifeCount2 = "1.3.6.1.2.1.43.10.2.1.4.1.2"
	PrtMarkerLifeCount3 = "1.3.6.1.2.1.43.10.2.1.4.1.3"

	// Supply and colorant columns.
	PrtMarkerSuppliesMaxCap = "1.3.6.1.2.1.43.11.1.1.8"
	PrtMarkerSuppliesLevel  = "1.3.6.1.2.1.43.11.1.1.9"
	PrtMarkerColorantValue  = "1.3.6.1.2.1.43.12.1.1.4"

	// Alert table columns.
	PrtAlertCode        = "1.3.6.1.2.1.43.18.1.1.7"
	PrtAlertDescription = "1.3.6.1.2.1.43.18.1.1.8"
)

const (
	// --- Ricoh enterprise MIB (1.3.6.1.4.1.367) ---

	// RicohTotalCounter is the engine total counter on MP-series devices.
	RicohTotalCounter = "1.3.6.1.4.1.367.3.2.1.2.19.5.1.6.1"
	// RicohLegacyCounter is the older total counter some firmware still exposes.
	RicohLegacyCounter = "1.3.6.1.4.1.367.3.2.1.1.4.1.8.0"
)

// PageCounterFallbacks lists page counter OIDs in query order: standard marker
// counters first, then vendor counters.
func PageCounterFallbacks() []string {
	return []string{
		PrtMarkerLifeCount1,
		PrtMarkerLifeCount2,
		PrtMarkerLifeCount3,
		RicohLegacyCounter,
	}
}

// Normalize strips the leading dot gosnmp puts on PDU names.
func Normalize(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

// Valid reports whether oid is a dotted-decimal identifier.
func Valid(oid string) bool {
	oid = Normalize(oid)
	if oid == "" {
		return false
	}
	for _, part := range strings.Split(oid, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// InSubtree reports whether oid lies strictly below root.
func InSubtree(oid, root string) bool {
	oid, root = Normalize(oid), Normalize(root)
	return strings.HasPrefix(oid, root+".")
}

// Set is the full list of identifiers one poll uses. Deployments override
// individual entries through configuration; empty entries fall back to the
// defaults via WithDefaults.
type Set struct {
	Model          string   `toml:"model" json:"model"`
	Serial         string   `toml:"serial" json:"serial"`
	Status         string   `toml:"status" json:"status"`
	AlertDescr     string   `toml:"alert_description" json:"alertDescription"`
	AlertState     string   `toml:"alert_state" json:"alertState"`
	TrayStatus     string   `toml:"tray_status" json:"trayStatus"`
	TrayName       string   `toml:"tray_name" json:"trayName"`
	SupplyDescr    string   `toml:"supply_description" json:"supplyDescription"`
	SupplyLevel    string   `toml:"supply_level" json:"supplyLevel"`
	SupplyCapacity string   `toml:"supply_capacity" json:"supplyCapacity"`
	RicohCounter   string   `toml:"ricoh_counter" json:"ricohCounter"`
	PageCounters   []string `toml:"page_counters" json:"pageCounters"`
}

// Defaults returns the standard identifier set.
func Defaults() Set {
	return Set{
		Model:          SysDescr,
		Serial:         PrtGeneralSerialNumber,
		Status:         HrDeviceStatus,
		AlertDescr:     PrtAlertDescription,
		AlertState:     PrtAlertCode,
		TrayStatus:     PrtInputStatus,
		TrayName:       PrtInputName,
		SupplyDescr:    PrtMarkerColorantValue,
		SupplyLevel:    PrtMarkerSuppliesLevel,
		SupplyCapacity: PrtMarkerSuppliesMaxCap,
		RicohCounter:   RicohTotalCounter,
		PageCounters:   PageCounterFallbacks(),
	}
}

// WithDefaults fills every empty entry of s from Defaults.
func (s Set) WithDefaults() Set {
	d := Defaults()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		} else {
			*v = Normalize(*v)
		}
	}
	fill(&s.Model, d.Model)
	fill(&s.Serial, d.Serial)
	fill(&s.Status, d.Status)
	fill(&s.AlertDescr, d.AlertDescr)
	fill(&s.AlertState, d.AlertState)
	fill(&s.TrayStatus, d.TrayStatus)
	fill(&s.TrayName, d.TrayName)
	fill(&s.SupplyDescr, d.SupplyDescr)
	fill(&s.SupplyLevel, d.SupplyLevel)
	fill(&s.SupplyCapacity, d.SupplyCapacity)
	fill(&s.RicohCounter, d.RicohCounter)
	if len(s.PageCounters) == 0 {
		s.PageCounters = d.PageCounters
	} else {
		counters := make([]string, 0, len(s.PageCounters))
		for _, oid := range s.PageCounters {
			if oid = Normalize(oid); oid != "" {
				counters = append(counters, oid)
			}
		}
		s.PageCounters = counters
	}
	return s
}

// Validate reports the first entry that is not a dotted-decimal identifier.
func (s Set) Validate() error {
	entries := []struct{ name, oid string }{
		{"model", s.Model}, {"serial", s.Serial}, {"status", s.Status},
		{"alert_description", s.AlertDescr}, {"alert_state", s.AlertState},
		{"tray_status", s.TrayStatus}, {"tray_name", s.TrayName},
		{"supply_description", s.SupplyDescr}, {"supply_level", s.SupplyLevel},
		{"supply_capacity", s.SupplyCapacity}, {"ricoh_counter", s.RicohCounter},
	}
	for i, oid := range s.PageCounters {
		entries = append(entries, struct{ name, oid string }{fmt.Sprintf("page_counters[%d]", i), oid})
	}
	for _, e := range entries {
		if !Valid(e.oid) {
			return fmt.Errorf("invalid OID for %s: %q", e.name, e.oid)
		}
	}
	return nil
}
