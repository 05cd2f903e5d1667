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

package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netvigil/netvigil/pkg/logger"
	"github.com/netvigil/netvigil/pkg/models"
)

// Sample history is bounded per key; the durable store is an external
// collaborator, this keeps the working set flat.
const defaultMaxSamples = 1024

// deviceEntry holds everything owned by one device behind one lock,
// so a poll commit is a single critical section and commits for
// different devices never contend.
type deviceEntry struct {
	mu         sync.Mutex
	device     *models.Device
	interfaces map[int]*models.Interface
	samples    map[models.AlertKey][]models.MetricSample
	alerts     map[models.AlertKey]models.AlertState
}

// MemoryStore implements Store with per-device locking. The outer
// lock guards map membership only.
type MemoryStore struct {
	mu         sync.RWMutex
	devices    map[string]*deviceEntry
	byIP       map[string]string
	recipients []string
	maxSamples int
	logger     logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log logger.Logger) *MemoryStore {
	return &MemoryStore{
		devices:    make(map[string]*deviceEntry),
		byIP:       make(map[string]string),
		maxSamples: defaultMaxSamples,
		logger:     log.WithComponent("registry"),
	}
}

func (s *MemoryStore) entry(id string) (*deviceEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.devices[id]

	return e, ok
}

func (s *MemoryStore) GetDevices(_ context.Context) ([]*models.Device, error) {
	s.mu.RLock()
	entries := make([]*deviceEntry, 0, len(s.devices))

	for _, e := range s.devices {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	devices := make([]*models.Device, 0, len(entries))

	for _, e := range entries {
		e.mu.Lock()
		devices = append(devices, e.device.Clone())
		e.mu.Unlock()
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].IP < devices[j].IP })

	return devices, nil
}

func (s *MemoryStore) GetDevice(_ context.Context, id string) (*models.Device, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.device.Clone(), nil
}

func (s *MemoryStore) GetDeviceByIP(ctx context.Context, ip string) (*models.Device, error) {
	s.mu.RLock()
	id, ok := s.byIP[ip]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrDeviceNotFound
	}

	return s.GetDevice(ctx, id)
}

func (s *MemoryStore) UpsertDevice(_ context.Context, device *models.Device) (*models.Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	if device.IP == "" {
		return nil, ErrMissingAddress
	}

	s.mu.Lock()

	id, exists := s.byIP[device.IP]
	if !exists {
		if device.ID == "" {
			device.ID = uuid.New().String()
		}

		e := &deviceEntry{
			device:     device.Clone(),
			interfaces: make(map[int]*models.Interface),
			samples:    make(map[models.AlertKey][]models.MetricSample),
			alerts:     make(map[models.AlertKey]models.AlertState),
		}

		s.devices[device.ID] = e
		s.byIP[device.IP] = device.ID
		s.mu.Unlock()

		s.logger.Debug().Str("ip", device.IP).Str("device_id", device.ID).Msg("Device created")

		return device.Clone(), nil
	}

	e := s.devices[id]
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Refresh identity fields only; thresholds, maintenance state and
	// poll tracking belong to the stored record.
	if device.Hostname != "" {
		e.device.Hostname = device.Hostname
	}

	if device.MAC != "" {
		e.device.MAC = device.MAC
	}

	if device.Vendor != "" {
		e.device.Vendor = device.Vendor
	}

	if !device.LastSeen.IsZero() {
		e.device.LastSeen = device.LastSeen
	} else {
		e.device.LastSeen = time.Now()
	}

	return e.device.Clone(), nil
}

func (s *MemoryStore) UpdateDevice(_ context.Context, device *models.Device) (*models.Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	e, ok := s.entry(device.ID)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stored := device.Clone()
	stored.IP = e.device.IP

	e.device = stored

	return stored.Clone(), nil
}

func (s *MemoryStore) DeleteDevice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}

	delete(s.devices, id)
	delete(s.byIP, e.device.IP)

	s.logger.Info().Str("device_id", id).Str("ip", e.device.IP).Msg("Device deleted")

	return nil
}

func (s *MemoryStore) GetInterfaces(_ context.Context, deviceID string) ([]*models.Interface, error) {
	e, ok := s.entry(deviceID)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ifaces := make([]*models.Interface, 0, len(e.interfaces))
	for _, iface := range e.interfaces {
		ifaces = append(ifaces, iface.Clone())
	}

	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].IfIndex < ifaces[j].IfIndex })

	return ifaces, nil
}

func (s *MemoryStore) UpsertInterface(_ context.Context, iface *models.Interface) error {
	e, ok := s.entry(iface.DeviceID)
	if !ok {
		return ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.upsertInterfaceLocked(e, iface)

	return nil
}

// upsertInterfaceLocked merges an observed interface into the entry.
// The discard threshold on an existing record is operator-owned and
// left untouched; see SetInterfaceThreshold. Caller holds e.mu.
func (s *MemoryStore) upsertInterfaceLocked(e *deviceEntry, iface *models.Interface) {
	existing, ok := e.interfaces[iface.IfIndex]
	if !ok {
		stored := iface.Clone()
		if stored.DropThreshold == 0 {
			stored.DropThreshold = 0.1
		}

		e.interfaces[iface.IfIndex] = stored

		return
	}

	existing.Name = iface.Name
	existing.AdminStatus = iface.AdminStatus
	existing.OperStatus = iface.OperStatus
	existing.OctetsIn = iface.OctetsIn
	existing.OctetsOut = iface.OctetsOut
	existing.DiscardsIn = iface.DiscardsIn
	existing.DiscardsOut = iface.DiscardsOut
	existing.ErrorsIn = iface.ErrorsIn
	existing.ErrorsOut = iface.ErrorsOut
	existing.LastSeen = iface.LastSeen

	if iface.SpeedBPS != 0 && iface.SpeedBPS != existing.SpeedBPS {
		existing.SpeedBPS = iface.SpeedBPS
		existing.SpeedSource = iface.SpeedSource
		existing.SpeedSeen = iface.LastSeen
	}
}

func (s *MemoryStore) SetInterfaceThreshold(_ context.Context, deviceID string, ifIndex int, threshold float64) error {
	e, ok := s.entry(deviceID)
	if !ok {
		return ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	iface, ok := e.interfaces[ifIndex]
	if !ok {
		return ErrInterfaceNotFound
	}

	iface.DropThreshold = threshold

	return nil
}

func (s *MemoryStore) AppendMetricSample(_ context.Context, sample models.MetricSample) error {
	e, ok := s.entry(sample.DeviceID)
	if !ok {
		return ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.appendSampleLocked(e, sample)

	return nil
}

// appendSampleLocked appends to the bounded per-key history. Caller
// holds e.mu.
func (s *MemoryStore) appendSampleLocked(e *deviceEntry, sample models.MetricSample) {
	key := sample.SampleKey()
	ring := append(e.samples[key], sample)

	if len(ring) > s.maxSamples {
		ring = ring[len(ring)-s.maxSamples:]
	}

	e.samples[key] = ring
}

func (s *MemoryStore) GetSamples(_ context.Context, key models.AlertKey, limit int) ([]models.MetricSample, error) {
	e, ok := s.entry(key.DeviceID)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ring := e.samples[key]
	if limit > 0 && len(ring) > limit {
		ring = ring[len(ring)-limit:]
	}

	out := make([]models.MetricSample, len(ring))
	copy(out, ring)

	return out, nil
}

func (s *MemoryStore) GetAlertState(_ context.Context, key models.AlertKey) (models.AlertState, error) {
	e, ok := s.entry(key.DeviceID)
	if !ok {
		return models.AlertClear, ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if state, ok := e.alerts[key]; ok {
		return state, nil
	}

	return models.AlertClear, nil
}

func (s *MemoryStore) SetAlertState(_ context.Context, key models.AlertKey, state models.AlertState) error {
	e, ok := s.entry(key.DeviceID)
	if !ok {
		return ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.alerts[key] = state

	return nil
}

// CommitPoll applies one poll unit's accumulated state under the
// device lock: device fields, interface upserts, samples and alert
// transitions become visible together. Only poll-owned device fields
// are merged, so an operator write landing between the unit's
// snapshot and the commit is not rolled back.
func (s *MemoryStore) CommitPoll(_ context.Context, commit *models.PollCommit) error {
	if commit == nil || commit.Device == nil {
		return ErrNilCommit
	}

	e, ok := s.entry(commit.Device.ID)
	if !ok {
		return ErrDeviceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	polled := commit.Device
	e.device.Hostname = polled.Hostname
	e.device.Reachable = polled.Reachable
	e.device.ConsecutiveFailures = polled.ConsecutiveFailures
	e.device.LastPollAttempt = polled.LastPollAttempt

	if !polled.LastPollSuccess.IsZero() {
		e.device.LastPollSuccess = polled.LastPollSuccess
	}

	if polled.LastSeen.After(e.device.LastSeen) {
		e.device.LastSeen = polled.LastSeen
	}

	// Close the stored maintenance window only if it is still the
	// stale one the unit saw; a window opened mid-cycle stays open.
	if commit.MaintenanceExpired && e.device.Maintenance.Stale(polled.LastPollAttempt) {
		e.device.Maintenance.Enabled = false
		e.device.Maintenance.Until = time.Time{}
	}

	for _, iface := range commit.Interfaces {
		s.upsertInterfaceLocked(e, iface)
	}

	for _, sample := range commit.Samples {
		s.appendSampleLocked(e, sample)
	}

	for key, state := range commit.AlertStates {
		e.alerts[key] = state
	}

	return nil
}

func (s *MemoryStore) GetRecipients(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.recipients))
	copy(out, s.recipients)

	return out, nil
}

func (s *MemoryStore) SetRecipients(_ context.Context, recipients []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipients = make([]string, len(recipients))
	copy(s.recipients, recipients)

	return nil
}
