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

package poller

import (
	"context"
	"strconv"
	"time"

	"github.com/netvigil/netvigil/pkg/alerting"
	"github.com/netvigil/netvigil/pkg/metrics"
	"github.com/netvigil/netvigil/pkg/models"
	"github.com/netvigil/netvigil/pkg/notify"
	"github.com/netvigil/netvigil/pkg/snmp"
)

// ifSpeedCap is the saturated 32-bit ifSpeed value reported by
// gigabit-class interfaces; ifHighSpeed is authoritative past it.
const ifSpeedCap = 4294967295

// pollRun accumulates one poll unit's state: the device copy being
// mutated, the pending commit and the notifications to enqueue once
// the commit lands.
type pollRun struct {
	poller *Poller
	device *models.Device
	commit *models.PollCommit
	events []notify.Event
	now    time.Time
}

// pollDevice runs the complete poll unit for one device. Every step
// is independent per device; a failure here never affects another
// device's cycle. Returns true when the device-level poll succeeded.
func (p *Poller) pollDevice(ctx context.Context, deviceID string, cycleTime time.Time) bool {
	device, err := p.store.GetDevice(ctx, deviceID)
	if err != nil {
		p.logger.Warn().Str("device_id", deviceID).Err(err).Msg("Device vanished before poll")

		return false
	}

	run := &pollRun{
		poller: p,
		device: device,
		now:    cycleTime,
		commit: &models.PollCommit{
			Device:      device,
			AlertStates: make(map[models.AlertKey]models.AlertState),
		},
	}

	device.LastPollAttempt = cycleTime

	values, err := p.client.Get(ctx, device.IP, deviceOIDs(device.Vendor))
	if err != nil {
		run.handleTransportFailure(ctx)
		run.finish(ctx)

		return false
	}

	run.handleDeviceSuccess(ctx, values)

	if alerting.IsSuppressed(device, cycleTime) {
		p.logger.Debug().Str("ip", device.IP).Msg("Maintenance window active, skipping interface poll")
	} else {
		run.pollInterfaces(ctx)
	}

	return run.finish(ctx)
}

// handleTransportFailure is step 3 of the poll unit: count the
// failure, flip reachability at the threshold and evaluate the
// reachability alert. No metrics are recorded and no interface poll
// is attempted this cycle.
func (r *pollRun) handleTransportFailure(ctx context.Context) {
	d := r.device
	d.ConsecutiveFailures++

	exceeded := d.ConsecutiveFailures >= d.FailureThreshold
	if exceeded && d.Reachable {
		d.Reachable = false

		r.poller.logger.Error().
			Str("ip", d.IP).
			Int("failures", d.ConsecutiveFailures).
			Msg("Device marked unreachable")
	} else {
		r.poller.logger.Warn().
			Str("ip", d.IP).
			Int("failures", d.ConsecutiveFailures).
			Msg("Device poll failed")
	}

	r.evaluate(ctx, models.AlertKey{DeviceID: d.ID, Kind: models.MetricReachability},
		exceeded, float64(d.ConsecutiveFailures), float64(d.FailureThreshold), "")

	if !d.Reachable {
		r.clearInterfaceAlerts(ctx)
	}
}

// handleDeviceSuccess is step 4: reset the failure counter, restore
// reachability, compute and record CPU/memory and evaluate their
// alerts.
func (r *pollRun) handleDeviceSuccess(ctx context.Context, values map[string]string) {
	d := r.device

	d.ConsecutiveFailures = 0
	d.LastPollSuccess = r.now
	d.LastSeen = r.now

	if !d.Reachable {
		d.Reachable = true

		r.poller.logger.Info().Str("ip", d.IP).Msg("Device is reachable again")
	}

	if name := values[snmp.OIDSysName]; name != "" {
		d.Hostname = name
	}

	r.evaluate(ctx, models.AlertKey{DeviceID: d.ID, Kind: models.MetricReachability},
		false, 0, float64(d.FailureThreshold), "")

	cpu := metrics.CPUPercent(parseFloat(values[snmp.OIDCiscoCPU5Sec]))
	mem := metrics.MemoryPercent(
		parseFloat(values[snmp.OIDCiscoMemPoolUsed]),
		parseFloat(values[snmp.OIDCiscoMemPoolFree]),
	)

	r.sample(models.MetricCPU, 0, cpu)
	r.sample(models.MetricMemory, 0, mem)

	r.evaluate(ctx, models.AlertKey{DeviceID: d.ID, Kind: models.MetricCPU},
		alerting.Exceeds(cpu, d.CPUThreshold), cpu, d.CPUThreshold, "")
	r.evaluate(ctx, models.AlertKey{DeviceID: d.ID, Kind: models.MetricMemory},
		alerting.Exceeds(mem, d.MemoryThreshold), mem, d.MemoryThreshold, "")
}

// pollInterfaces is step 6: bulk-walk the interface table, merge rows
// per ifIndex, record rate samples and evaluate interface alerts.
// Interface data is best-effort; a walk failure leaves the device
// commit intact.
func (r *pollRun) pollInterfaces(ctx context.Context) {
	d := r.device

	rows, err := r.poller.client.BulkWalk(ctx, d.IP, []string{
		snmp.OIDIfDescr,
		snmp.OIDIfSpeed,
		snmp.OIDIfAdminStatus,
		snmp.OIDIfOperStatus,
		snmp.OIDIfInOctets,
		snmp.OIDIfInDiscards,
		snmp.OIDIfInErrors,
		snmp.OIDIfOutOctets,
		snmp.OIDIfOutDiscards,
		snmp.OIDIfOutErrors,
		snmp.OIDIfHighSpeed,
	})
	if err != nil {
		r.poller.logger.Warn().Str("ip", d.IP).Err(err).Msg("Interface poll failed")

		return
	}

	grouped := make(map[int]map[string]string)

	for _, row := range rows {
		cols, ok := grouped[row.Index]
		if !ok {
			cols = make(map[string]string)
			grouped[row.Index] = cols
		}

		cols[row.BaseOID] = row.Value
	}

	previous := make(map[int]*models.Interface)

	if known, err := r.poller.store.GetInterfaces(ctx, d.ID); err == nil {
		for _, iface := range known {
			previous[iface.IfIndex] = iface
		}
	}

	for ifIndex, cols := range grouped {
		iface := r.buildInterface(ifIndex, cols, previous[ifIndex])
		r.commit.Interfaces = append(r.commit.Interfaces, iface)

		r.recordInterfaceMetrics(ctx, iface, previous[ifIndex])
	}
}

// buildInterface merges one walk group into an Interface record,
// carrying forward the known speed when the device stops reporting
// one.
func (r *pollRun) buildInterface(ifIndex int, cols map[string]string, prev *models.Interface) *models.Interface {
	iface := &models.Interface{
		DeviceID:      r.device.ID,
		IfIndex:       ifIndex,
		Name:          cols[snmp.OIDIfDescr],
		AdminStatus:   int(parseUint(cols[snmp.OIDIfAdminStatus])),
		OperStatus:    int(parseUint(cols[snmp.OIDIfOperStatus])),
		OctetsIn:      parseUint(cols[snmp.OIDIfInOctets]),
		OctetsOut:     parseUint(cols[snmp.OIDIfOutOctets]),
		DiscardsIn:    parseUint(cols[snmp.OIDIfInDiscards]),
		DiscardsOut:   parseUint(cols[snmp.OIDIfOutDiscards]),
		ErrorsIn:      parseUint(cols[snmp.OIDIfInErrors]),
		ErrorsOut:     parseUint(cols[snmp.OIDIfOutErrors]),
		DropThreshold: r.poller.config.DropThreshold,
		LastSeen:      r.now,
	}

	if iface.Name == "" {
		iface.Name = "n/a"
	}

	iface.SpeedBPS, iface.SpeedSource = interfaceSpeed(cols)

	if prev != nil {
		if iface.SpeedBPS == 0 {
			iface.SpeedBPS = prev.SpeedBPS
			iface.SpeedSource = prev.SpeedSource
		}

		// The stored threshold is operator-owned; zero means alert on
		// any discards, not "use the default".
		iface.DropThreshold = prev.DropThreshold
	}

	return iface
}

// recordInterfaceMetrics appends the derived rate samples and
// evaluates the status and drops alerts for one interface.
func (r *pollRun) recordInterfaceMetrics(ctx context.Context, iface *models.Interface, prev *models.Interface) {
	d := r.device

	discardRate := metrics.DiscardRate(iface.DiscardsIn, iface.DiscardsOut, iface.OctetsIn, iface.OctetsOut)
	errorRate := metrics.ErrorRate(iface.ErrorsIn, iface.ErrorsOut, iface.OctetsIn, iface.OctetsOut)

	r.sample(models.MetricDrops, iface.IfIndex, discardRate)
	r.sample(models.MetricErrors, iface.IfIndex, errorRate)

	if prev != nil && !prev.LastSeen.IsZero() {
		total := iface.OctetsIn + iface.OctetsOut
		prevTotal := prev.OctetsIn + prev.OctetsOut

		// Counter wrap between polls yields no usable delta.
		if total >= prevTotal {
			bw := metrics.BandwidthPercent(total-prevTotal, r.now.Sub(prev.LastSeen), iface.SpeedBPS)
			r.sample(models.MetricBandwidth, iface.IfIndex, bw)
		}
	}

	down := iface.OperStatus != models.OperUp

	r.evaluate(ctx, models.AlertKey{DeviceID: d.ID, IfIndex: iface.IfIndex, Kind: models.MetricStatus},
		down, float64(iface.OperStatus), 0, iface.Name)
	r.evaluate(ctx, models.AlertKey{DeviceID: d.ID, IfIndex: iface.IfIndex, Kind: models.MetricDrops},
		alerting.Exceeds(discardRate, iface.DropThreshold), discardRate, iface.DropThreshold, iface.Name)
}

// evaluate runs the alert state machine for one key and stages the
// transition plus any notification. An expired maintenance window is
// cleared on the device copy the first time it is observed.
func (r *pollRun) evaluate(ctx context.Context, key models.AlertKey, exceeded bool, value, threshold float64, ifName string) {
	state := r.currentState(ctx, key)

	out := alerting.Evaluate(alerting.Input{
		Exceeded:    exceeded,
		State:       state,
		Maintenance: r.device.Maintenance,
		Now:         r.now,
	})

	if out.WindowExpired {
		alerting.DisableMaintenance(r.device)
		r.commit.MaintenanceExpired = true

		r.poller.logger.Info().Str("ip", r.device.IP).Msg("Maintenance window expired, re-enabling alerts")
	}

	if out.State != state {
		r.commit.AlertStates[key] = out.State
	}

	if out.Notify == alerting.NotifyNone {
		return
	}

	direction := notify.DirectionAlert
	if out.Notify == alerting.NotifyRecovery {
		direction = notify.DirectionRecovery
	}

	r.events = append(r.events, notify.Event{
		Direction:           direction,
		Kind:                key.Kind,
		Hostname:            r.device.Hostname,
		IP:                  r.device.IP,
		IfIndex:             key.IfIndex,
		IfName:              ifName,
		Value:               value,
		Threshold:           threshold,
		ConsecutiveFailures: r.device.ConsecutiveFailures,
		Timestamp:           r.now,
	})
}

// sample stages one metric sample for the commit.
func (r *pollRun) sample(kind models.MetricKind, ifIndex int, value float64) {
	r.commit.Samples = append(r.commit.Samples, models.MetricSample{
		DeviceID:  r.device.ID,
		IfIndex:   ifIndex,
		Kind:      kind,
		Timestamp: r.now,
		Value:     value,
	})
}

// currentState prefers a transition already staged in this run so a
// single cycle never evaluates against stale state.
func (r *pollRun) currentState(ctx context.Context, key models.AlertKey) models.AlertState {
	if staged, ok := r.commit.AlertStates[key]; ok {
		return staged
	}

	state, err := r.poller.store.GetAlertState(ctx, key)
	if err != nil {
		return models.AlertClear
	}

	return state
}

// clearInterfaceAlerts force-clears interface alert states once the
// device itself is unreachable; per-interface alerts are meaningless
// without device connectivity and would otherwise fire spuriously on
// recovery.
func (r *pollRun) clearInterfaceAlerts(ctx context.Context) {
	ifaces, err := r.poller.store.GetInterfaces(ctx, r.device.ID)
	if err != nil {
		return
	}

	for _, iface := range ifaces {
		for _, kind := range []models.MetricKind{models.MetricStatus, models.MetricDrops} {
			key := models.AlertKey{DeviceID: r.device.ID, IfIndex: iface.IfIndex, Kind: kind}

			if state := r.currentState(ctx, key); state != models.AlertClear {
				r.commit.AlertStates[key] = models.AlertClear
			}
		}
	}
}

// finish commits the run atomically and only then enqueues
// notifications: the persisted transition is the source of truth
// independent of delivery outcome. A commit failure drops the cycle's
// state so the next cycle retries from a consistent view.
func (r *pollRun) finish(ctx context.Context) bool {
	if err := r.poller.store.CommitPoll(ctx, r.commit); err != nil {
		r.poller.logger.Error().
			Str("ip", r.device.IP).
			Err(err).
			Msg("Poll commit failed, discarding cycle state")

		return false
	}

	if r.poller.dispatcher != nil {
		for _, ev := range r.events {
			r.poller.dispatcher.Enqueue(ev)
		}
	}

	return r.device.Reachable
}

// deviceOIDs is the device-level GET set: identity plus the vendor
// metric columns. Devices without known vendor OIDs still answer the
// identity columns, which is what reachability keys off.
func deviceOIDs(vendor string) []string {
	oids := []string{snmp.OIDSysUptime, snmp.OIDSysName}

	if vendor == "Cisco" {
		oids = append(oids, snmp.OIDCiscoCPU5Sec, snmp.OIDCiscoMemPoolUsed, snmp.OIDCiscoMemPoolFree)
	}

	return oids
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return v
}

func parseUint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}

	return v
}

// interfaceSpeed selects the interface speed: ifHighSpeed (Mbps) is
// authoritative for gigabit-class links, ifSpeed (bps) below its
// 32-bit saturation value.
func interfaceSpeed(cols map[string]string) (uint64, string) {
	if mbps := parseUint(cols[snmp.OIDIfHighSpeed]); mbps > 0 {
		return mbps * 1_000_000, "ifHighSpeed"
	}

	if bps := parseUint(cols[snmp.OIDIfSpeed]); bps > 0 && bps < ifSpeedCap {
		return bps, "ifSpeed"
	}

	return 0, ""
}
