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

// Package registry owns the device and interface records, their
// current alert states and the metric sample history. It is the only
// shared mutable resource across concurrent poll workers; writes for
// one device are serialized, writes for different devices proceed
// without contention.
package registry

import (
	"context"

	"github.com/netvigil/netvigil/pkg/models"
)

// Store is the persistence contract the polling and alerting engine
// consumes. A durable implementation is an external collaborator; the
// in-memory store ships as the reference implementation. All calls
// are synchronous from the poll unit's perspective and CommitPoll is
// atomic per device.
type Store interface {
	GetDevices(ctx context.Context) ([]*models.Device, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	GetDeviceByIP(ctx context.Context, ip string) (*models.Device, error)

	// UpsertDevice creates the device or updates the mutable identity
	// fields of an existing one with the same address, preserving
	// thresholds, maintenance state and alert states. Returns the
	// stored record.
	UpsertDevice(ctx context.Context, device *models.Device) (*models.Device, error)

	// UpdateDevice replaces the stored record of an existing device.
	// Used by operator mutations (thresholds, maintenance); the address
	// and ID are immutable.
	UpdateDevice(ctx context.Context, device *models.Device) (*models.Device, error)

	// DeleteDevice removes the device and cascades its interfaces,
	// sample history and alert states.
	DeleteDevice(ctx context.Context, id string) error

	GetInterfaces(ctx context.Context, deviceID string) ([]*models.Interface, error)
	UpsertInterface(ctx context.Context, iface *models.Interface) error

	// SetInterfaceThreshold replaces one interface's discard-rate
	// threshold. Zero is a valid threshold, not an unset marker; poll
	// observations never overwrite it.
	SetInterfaceThreshold(ctx context.Context, deviceID string, ifIndex int, threshold float64) error

	AppendMetricSample(ctx context.Context, sample models.MetricSample) error
	GetSamples(ctx context.Context, key models.AlertKey, limit int) ([]models.MetricSample, error)

	GetAlertState(ctx context.Context, key models.AlertKey) (models.AlertState, error)
	SetAlertState(ctx context.Context, key models.AlertKey, state models.AlertState) error

	// CommitPoll applies everything one poll unit learned about one
	// device as a single visible unit. Only poll-owned device fields
	// are merged; operator-owned fields written since the unit's
	// snapshot win.
	CommitPoll(ctx context.Context, commit *models.PollCommit) error

	GetRecipients(ctx context.Context) ([]string, error)
	SetRecipients(ctx context.Context, recipients []string) error
}
