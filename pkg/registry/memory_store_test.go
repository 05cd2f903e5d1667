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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netvigil/netvigil/pkg/logger"
	"github.com/netvigil/netvigil/pkg/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()

	return NewMemoryStore(logger.NewTestLogger())
}

func seedDevice(t *testing.T, store *MemoryStore, ip string) *models.Device {
	t.Helper()

	device, err := store.UpsertDevice(context.Background(), &models.Device{
		IP:               ip,
		Hostname:         "host-" + ip,
		Reachable:        true,
		CPUThreshold:     80,
		MemoryThreshold:  80,
		FailureThreshold: 3,
	})
	require.NoError(t, err)

	return device
}

func TestUpsertDeviceCreateAndRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := seedDevice(t, store, "10.0.0.1")
	assert.NotEmpty(t, created.ID)

	// Same address refreshes identity fields only.
	refreshed, err := store.UpsertDevice(ctx, &models.Device{
		IP:               "10.0.0.1",
		Hostname:         "renamed",
		Vendor:           "Cisco",
		CPUThreshold:     10,
		FailureThreshold: 9,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, refreshed.ID)
	assert.Equal(t, "renamed", refreshed.Hostname)
	assert.Equal(t, "Cisco", refreshed.Vendor)
	assert.InDelta(t, 80.0, refreshed.CPUThreshold, 1e-9, "thresholds belong to the stored record")
	assert.Equal(t, 3, refreshed.FailureThreshold)

	devices, err := store.GetDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestUpsertDeviceValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertDevice(ctx, nil)
	assert.ErrorIs(t, err, ErrNilDevice)

	_, err = store.UpsertDevice(ctx, &models.Device{})
	assert.ErrorIs(t, err, ErrMissingAddress)
}

func TestUpdateDevice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	device.CPUThreshold = 95
	device.Maintenance = models.MaintenanceWindow{
		Enabled: true,
		Until:   time.Now().Add(time.Hour),
		Reason:  "fan swap",
	}

	updated, err := store.UpdateDevice(ctx, device)
	require.NoError(t, err)
	assert.InDelta(t, 95.0, updated.CPUThreshold, 1e-9)
	assert.True(t, updated.Maintenance.Enabled)

	_, err = store.UpdateDevice(ctx, &models.Device{ID: "missing"})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeleteDeviceCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	key := models.AlertKey{DeviceID: device.ID, Kind: models.MetricCPU}

	require.NoError(t, store.UpsertInterface(ctx, &models.Interface{DeviceID: device.ID, IfIndex: 1, Name: "eth0"}))
	require.NoError(t, store.AppendMetricSample(ctx, models.MetricSample{
		DeviceID: device.ID, Kind: models.MetricCPU, Value: 42, Timestamp: time.Now(),
	}))
	require.NoError(t, store.SetAlertState(ctx, key, models.AlertTriggered))

	require.NoError(t, store.DeleteDevice(ctx, device.ID))

	_, err := store.GetDevice(ctx, device.ID)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = store.GetInterfaces(ctx, device.ID)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = store.GetSamples(ctx, key, 0)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = store.GetAlertState(ctx, key)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	assert.ErrorIs(t, store.DeleteDevice(ctx, device.ID), ErrDeviceNotFound)
}

func TestInterfaceUpsertSemantics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	now := time.Now()

	require.NoError(t, store.UpsertInterface(ctx, &models.Interface{
		DeviceID: device.ID,
		IfIndex:  1,
		Name:     "Gi0/1",
		SpeedBPS: 1_000_000_000,
		LastSeen: now,
	}))

	ifaces, err := store.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.InDelta(t, 0.1, ifaces[0].DropThreshold, 1e-9, "new interface gets the default drop threshold")

	// A later observation without a speed keeps the stored one.
	require.NoError(t, store.UpsertInterface(ctx, &models.Interface{
		DeviceID:   device.ID,
		IfIndex:    1,
		Name:       "Gi0/1",
		OperStatus: models.OperUp,
		LastSeen:   now.Add(time.Minute),
	}))

	ifaces, err = store.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, uint64(1_000_000_000), ifaces[0].SpeedBPS)
	assert.Equal(t, models.OperUp, ifaces[0].OperStatus)
}

func TestSetInterfaceThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	now := time.Now()

	require.NoError(t, store.UpsertInterface(ctx, &models.Interface{
		DeviceID: device.ID,
		IfIndex:  1,
		Name:     "Gi0/1",
		LastSeen: now,
	}))

	require.NoError(t, store.SetInterfaceThreshold(ctx, device.ID, 1, 2.5))

	ifaces, err := store.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.InDelta(t, 2.5, ifaces[0].DropThreshold, 1e-9)

	// Zero is a real threshold, not a request for the default.
	require.NoError(t, store.SetInterfaceThreshold(ctx, device.ID, 1, 0))

	ifaces, err = store.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	assert.Zero(t, ifaces[0].DropThreshold)

	// A later poll observation leaves the operator's threshold alone.
	require.NoError(t, store.UpsertInterface(ctx, &models.Interface{
		DeviceID:      device.ID,
		IfIndex:       1,
		Name:          "Gi0/1",
		DropThreshold: 0.1,
		LastSeen:      now.Add(time.Minute),
	}))

	ifaces, err = store.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	assert.Zero(t, ifaces[0].DropThreshold)

	assert.ErrorIs(t, store.SetInterfaceThreshold(ctx, device.ID, 99, 0.5), ErrInterfaceNotFound)
	assert.ErrorIs(t, store.SetInterfaceThreshold(ctx, "missing", 1, 0.5), ErrDeviceNotFound)
}

func TestSampleHistoryIsBounded(t *testing.T) {
	store := newTestStore(t)
	store.maxSamples = 8

	ctx := context.Background()
	device := seedDevice(t, store, "10.0.0.1")
	key := models.AlertKey{DeviceID: device.ID, Kind: models.MetricCPU}

	for i := 0; i < 20; i++ {
		require.NoError(t, store.AppendMetricSample(ctx, models.MetricSample{
			DeviceID:  device.ID,
			Kind:      models.MetricCPU,
			Value:     float64(i),
			Timestamp: time.Now(),
		}))
	}

	samples, err := store.GetSamples(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, samples, 8)
	assert.InDelta(t, 12.0, samples[0].Value, 1e-9, "oldest samples evicted first")
	assert.InDelta(t, 19.0, samples[len(samples)-1].Value, 1e-9)

	limited, err := store.GetSamples(ctx, key, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.InDelta(t, 17.0, limited[0].Value, 1e-9)
}

func TestAlertStateDefaultsToClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	key := models.AlertKey{DeviceID: device.ID, IfIndex: 3, Kind: models.MetricDrops}

	state, err := store.GetAlertState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.AlertClear, state)

	require.NoError(t, store.SetAlertState(ctx, key, models.AlertTriggered))

	state, err = store.GetAlertState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTriggered, state)
}

func TestCommitPollAppliesAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	now := time.Now()

	polled := device.Clone()
	polled.ConsecutiveFailures = 0
	polled.LastPollSuccess = now

	key := models.AlertKey{DeviceID: device.ID, Kind: models.MetricCPU}

	commit := &models.PollCommit{
		Device: polled,
		Interfaces: []*models.Interface{
			{DeviceID: device.ID, IfIndex: 1, Name: "Gi0/1", OperStatus: models.OperUp, LastSeen: now},
		},
		Samples: []models.MetricSample{
			{DeviceID: device.ID, Kind: models.MetricCPU, Value: 91, Timestamp: now},
		},
		AlertStates: map[models.AlertKey]models.AlertState{key: models.AlertTriggered},
	}

	require.NoError(t, store.CommitPoll(ctx, commit))

	stored, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), stored.LastPollSuccess.Unix())

	ifaces, err := store.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	assert.Len(t, ifaces, 1)

	samples, err := store.GetSamples(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.InDelta(t, 91.0, samples[0].Value, 1e-9)

	state, err := store.GetAlertState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTriggered, state)
}

// An operator write landing between a poll unit's snapshot and its
// commit must survive the commit.
func TestCommitPollKeepsOperatorWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	now := time.Now()

	// Poll unit snapshots the device, then mutates its copy.
	snapshot, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)

	snapshot.Reachable = true
	snapshot.ConsecutiveFailures = 0
	snapshot.LastPollAttempt = now
	snapshot.LastPollSuccess = now
	snapshot.LastSeen = now

	// Operator raises a threshold and opens a window mid-cycle.
	current, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)

	current.CPUThreshold = 95
	current.Maintenance = models.MaintenanceWindow{
		Enabled: true,
		Until:   now.Add(time.Hour),
		Reason:  "line card swap",
	}

	_, err = store.UpdateDevice(ctx, current)
	require.NoError(t, err)

	require.NoError(t, store.CommitPoll(ctx, &models.PollCommit{Device: snapshot}))

	stored, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.InDelta(t, 95.0, stored.CPUThreshold, 1e-9, "operator threshold survives the commit")
	assert.True(t, stored.Maintenance.Enabled, "window opened mid-cycle survives the commit")
	assert.Equal(t, now.Unix(), stored.LastPollSuccess.Unix(), "poll-owned fields still land")
	assert.True(t, stored.Reachable)
}

func TestCommitPollMaintenanceExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := seedDevice(t, store, "10.0.0.1")
	now := time.Now()

	stale := device.Clone()
	stale.Maintenance = models.MaintenanceWindow{
		Enabled: true,
		Until:   now.Add(-time.Minute),
		Reason:  "overnight work",
	}

	_, err := store.UpdateDevice(ctx, stale)
	require.NoError(t, err)

	snapshot, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	snapshot.LastPollAttempt = now

	require.NoError(t, store.CommitPoll(ctx, &models.PollCommit{
		Device:             snapshot,
		MaintenanceExpired: true,
	}))

	stored, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, stored.Maintenance.Enabled)
	assert.True(t, stored.Maintenance.Until.IsZero())
	assert.Equal(t, "overnight work", stored.Maintenance.Reason, "reason survives expiry")

	// A fresh window replacing the stale one mid-cycle is kept even
	// though the commit observed an expiry.
	fresh, err := store.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	fresh.Maintenance = models.MaintenanceWindow{
		Enabled: true,
		Until:   now.Add(time.Hour),
		Reason:  "second shift",
	}

	_, err = store.UpdateDevice(ctx, fresh)
	require.NoError(t, err)

	require.NoError(t, store.CommitPoll(ctx, &models.PollCommit{
		Device:             snapshot,
		MaintenanceExpired: true,
	}))

	stored, err = store.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.True(t, stored.Maintenance.Enabled, "a live window is never closed by a stale observation")
}

func TestCommitPollValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.CommitPoll(ctx, nil), ErrNilCommit)
	assert.ErrorIs(t, store.CommitPoll(ctx, &models.PollCommit{}), ErrNilCommit)
	assert.ErrorIs(t, store.CommitPoll(ctx, &models.PollCommit{
		Device: &models.Device{ID: "missing", IP: "10.9.9.9"},
	}), ErrDeviceNotFound)
}

// Commits for different devices must not serialize against each
// other or lose writes.
func TestConcurrentCommitsForDifferentDevices(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := seedDevice(t, store, "10.0.0.1")
	second := seedDevice(t, store, "10.0.0.2")

	const rounds = 100

	var wg sync.WaitGroup

	for _, device := range []*models.Device{first, second} {
		wg.Add(1)

		go func(d *models.Device) {
			defer wg.Done()

			for i := 0; i < rounds; i++ {
				commit := &models.PollCommit{
					Device: d,
					Samples: []models.MetricSample{
						{DeviceID: d.ID, Kind: models.MetricCPU, Value: float64(i), Timestamp: time.Now()},
					},
				}

				if err := store.CommitPoll(ctx, commit); err != nil {
					t.Errorf("commit failed for %s: %v", d.IP, err)

					return
				}
			}
		}(device)
	}

	wg.Wait()

	for _, device := range []*models.Device{first, second} {
		samples, err := store.GetSamples(ctx, models.AlertKey{DeviceID: device.ID, Kind: models.MetricCPU}, 0)
		require.NoError(t, err)
		assert.Len(t, samples, rounds)
	}
}

func TestRecipients(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetRecipients(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.SetRecipients(ctx, []string{"noc@example.com", "oncall@example.com"}))

	got, err = store.GetRecipients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"noc@example.com", "oncall@example.com"}, got)

	// The returned slice is a copy.
	got[0] = "mutated@example.com"

	again, err := store.GetRecipients(ctx)
	require.NoError(t, err)
	assert.Equal(t, "noc@example.com", again[0])
}
