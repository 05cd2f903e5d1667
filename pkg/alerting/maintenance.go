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

package alerting

import (
	"time"

	"github.com/netvigil/netvigil/pkg/models"
)

// EnableMaintenance opens a suppression window on the device.
func EnableMaintenance(d *models.Device, duration time.Duration, reason string, now time.Time) {
	d.Maintenance = models.MaintenanceWindow{
		Enabled: true,
		Until:   now.Add(duration),
		Reason:  reason,
	}
}

// DisableMaintenance closes the window. The last reason is preserved
// for audit display.
func DisableMaintenance(d *models.Device) {
	d.Maintenance.Enabled = false
	d.Maintenance.Until = time.Time{}
}

// IsSuppressed answers whether the device is under an active,
// non-expired maintenance window at now.
func IsSuppressed(d *models.Device, now time.Time) bool {
	return d.Maintenance.Active(now)
}

// ExpireIfStale auto-disables a window whose expiry has passed.
// Returns true when it mutated the device.
func ExpireIfStale(d *models.Device, now time.Time) bool {
	if !d.Maintenance.Stale(now) {
		return false
	}

	DisableMaintenance(d)

	return true
}
