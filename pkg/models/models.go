/*
 * Copyright 2026 Netvigil Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package models holds the shared domain types for the polling and
// alerting engine.
package models

import "time"

// AlertState is the lifecycle state of one alert key.
type AlertState string

const (
	AlertClear        AlertState = "clear"
	AlertTriggered    AlertState = "triggered"
	AlertAcknowledged AlertState = "acknowledged"
)

// MetricKind identifies a monitored metric. Device-level kinds are
// cpu, memory and reachability; interface-level kinds are status and
// drops. Errors and bandwidth are sampled but never alerted on.
type MetricKind string

const (
	MetricCPU          MetricKind = "cpu"
	MetricMemory       MetricKind = "memory"
	MetricReachability MetricKind = "reachability"
	MetricStatus       MetricKind = "status"
	MetricDrops        MetricKind = "drops"
	MetricErrors       MetricKind = "errors"
	MetricBandwidth    MetricKind = "bandwidth"
)

// AlertKey uniquely identifies one alert state machine instance.
// IfIndex is zero for device-level kinds; SNMP interface indexes
// start at one.
type AlertKey struct {
	DeviceID string     `json:"device_id"`
	IfIndex  int        `json:"if_index,omitempty"`
	Kind     MetricKind `json:"kind"`
}

// MaintenanceWindow is a time-bounded operator-declared alert
// suppression. Until is only meaningful while Enabled is true; Reason
// survives disable for audit display.
type MaintenanceWindow struct {
	Enabled bool      `json:"enabled"`
	Until   time.Time `json:"until,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Active reports whether the window suppresses alerting at t.
func (w *MaintenanceWindow) Active(t time.Time) bool {
	return w.Enabled && t.Before(w.Until)
}

// Stale reports an enabled window whose expiry has passed.
func (w *MaintenanceWindow) Stale(t time.Time) bool {
	return w.Enabled && !t.Before(w.Until)
}

// Device is one monitored network element. The registry is the single
// owner of Device records; poll units mutate copies and commit them
// back atomically.
type Device struct {
	ID       string `json:"id"`
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	MAC      string `json:"mac,omitempty"`
	Vendor   string `json:"vendor,omitempty"`

	Reachable           bool `json:"reachable"`
	ConsecutiveFailures int  `json:"consecutive_failures"`

	CPUThreshold     float64 `json:"cpu_threshold"`
	MemoryThreshold  float64 `json:"memory_threshold"`
	FailureThreshold int     `json:"failure_threshold"`

	Maintenance MaintenanceWindow `json:"maintenance"`

	LastPollAttempt time.Time `json:"last_poll_attempt,omitempty"`
	LastPollSuccess time.Time `json:"last_poll_success,omitempty"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// Clone returns a deep copy safe to mutate outside the registry lock.
func (d *Device) Clone() *Device {
	c := *d
	return &c
}

// Interface is one port on a Device, keyed by SNMP ifIndex. Counters
// are cumulative as reported by the device.
type Interface struct {
	DeviceID string `json:"device_id"`
	IfIndex  int    `json:"if_index"`
	Name     string `json:"name"`

	AdminStatus int `json:"admin_status"`
	OperStatus  int `json:"oper_status"`

	SpeedBPS    uint64    `json:"speed_bps,omitempty"`
	SpeedSource string    `json:"speed_source,omitempty"`
	SpeedSeen   time.Time `json:"speed_seen,omitempty"`

	OctetsIn    uint64 `json:"octets_in"`
	OctetsOut   uint64 `json:"octets_out"`
	DiscardsIn  uint64 `json:"discards_in"`
	DiscardsOut uint64 `json:"discards_out"`
	ErrorsIn    uint64 `json:"errors_in"`
	ErrorsOut   uint64 `json:"errors_out"`

	DropThreshold float64 `json:"drop_threshold"`

	LastSeen time.Time `json:"last_seen"`
}

// OperUp is the IF-MIB ifOperStatus value for an operational port.
const OperUp = 1

// Clone returns a deep copy safe to mutate outside the registry lock.
func (i *Interface) Clone() *Interface {
	c := *i
	return &c
}

// MetricSample is one immutable computed observation.
type MetricSample struct {
	DeviceID  string     `json:"device_id"`
	IfIndex   int        `json:"if_index,omitempty"`
	Kind      MetricKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	Value     float64    `json:"value"`
}

// SampleKey groups samples for storage and retrieval.
func (s *MetricSample) SampleKey() AlertKey {
	return AlertKey{DeviceID: s.DeviceID, IfIndex: s.IfIndex, Kind: s.Kind}
}

// PollCommit is the per-device atomic persistence unit: everything a
// poll unit learned about one device in one cycle. The store applies
// it under the device's lock so readers never observe a half-updated
// device. Only poll-owned device fields are merged on commit;
// operator-owned fields (thresholds, maintenance) written between the
// unit's snapshot and the commit are kept.
type PollCommit struct {
	Device      *Device
	Interfaces  []*Interface
	Samples     []MetricSample
	AlertStates map[AlertKey]AlertState

	// MaintenanceExpired records that the unit observed a stale
	// maintenance window on its snapshot. The stored window is only
	// closed if it is still the stale one at commit time.
	MaintenanceExpired bool
}

// CycleSummary is the aggregate outcome of one polling cycle.
type CycleSummary struct {
	StartedAt time.Time `json:"started_at"`
	Manual    bool      `json:"manual"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// DiscoveryResult is the aggregate outcome of one discovery scan.
// TotalScanned counts usable host addresses probed; network and
// broadcast addresses are never probed.
type DiscoveryResult struct {
	JobID        string    `json:"job_id"`
	CIDR         string    `json:"cidr"`
	StartedAt    time.Time `json:"started_at"`
	TotalScanned int       `json:"total_scanned"`
	DevicesFound int       `json:"devices_found"`
	Devices      []*Device `json:"devices"`
}
