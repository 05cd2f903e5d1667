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

// Package alerting implements the per-metric alert state machine and
// the maintenance window tracker. Evaluation is pure; the registry
// persists the resulting transitions.
package alerting

import (
	"time"

	"github.com/netvigil/netvigil/pkg/models"
)

// Notification says what, if anything, must be dispatched for a
// transition. The state transition is authoritative regardless of
// delivery outcome.
type Notification int

const (
	NotifyNone Notification = iota
	NotifyAlert
	NotifyRecovery
)

// Input is one evaluation of a single alert key.
type Input struct {
	// Exceeded is the threshold comparison result. Use Exceeds for
	// value metrics; reachability maps failure-count >= threshold.
	Exceeded bool

	State       models.AlertState
	Maintenance models.MaintenanceWindow
	Now         time.Time
}

// Outcome is the decided next state plus any required notification.
// WindowExpired reports that an enabled maintenance window lapsed
// during this evaluation and must be cleared on the device.
type Outcome struct {
	State         models.AlertState
	Notify        Notification
	WindowExpired bool
}

// Exceeds is the threshold tie-break rule: strictly greater only;
// exact equality is not an exceedance.
func Exceeds(value, threshold float64) bool {
	return value > threshold
}

// Evaluate runs the state machine:
//
//	clear -> triggered            (exceeded, alert notification)
//	triggered|acknowledged -> clear (normal, recovery notification)
//
// Re-evaluating an exceeded value from triggered or acknowledged is a
// no-op, so a sustained breach notifies exactly once. An active
// maintenance window suppresses everything; a stale window is expired
// first and evaluation proceeds unsuppressed.
func Evaluate(in Input) Outcome {
	out := Outcome{State: in.State}

	if in.Maintenance.Active(in.Now) {
		return out
	}

	if in.Maintenance.Stale(in.Now) {
		out.WindowExpired = true
	}

	if in.Exceeded {
		if in.State == models.AlertClear {
			out.State = models.AlertTriggered
			out.Notify = NotifyAlert
		}

		return out
	}

	if in.State == models.AlertTriggered || in.State == models.AlertAcknowledged {
		out.State = models.AlertClear
		out.Notify = NotifyRecovery
	}

	return out
}

// Acknowledge is the operator override for an active alert. It is a
// command distinct from metric observations and never fires from a
// poll cycle.
func Acknowledge(state models.AlertState) (models.AlertState, error) {
	if state != models.AlertTriggered {
		return state, ErrAlertNotActive
	}

	return models.AlertAcknowledged, nil
}

// Resolve manually clears an alert without a notification.
func Resolve(models.AlertState) models.AlertState {
	return models.AlertClear
}
