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

// Package notify formats and delivers alert and recovery emails as
// background work decoupled from the polling critical path.
package notify

import (
	"context"
	"time"

	"github.com/netvigil/netvigil/pkg/models"
)

// Direction distinguishes an alert from its recovery.
type Direction string

const (
	DirectionAlert    Direction = "alert"
	DirectionRecovery Direction = "recovery"
)

// Event is one notifiable alert transition. The transition itself is
// already persisted by the time an Event is enqueued; delivery is
// best-effort.
type Event struct {
	ID        string
	Direction Direction
	Kind      models.MetricKind

	Hostname string
	IP       string

	IfIndex int
	IfName  string

	Value     float64
	Threshold float64

	ConsecutiveFailures int

	Timestamp time.Time
}

// RecipientSource supplies the current recipient list at delivery
// time, so recipient changes apply to in-flight events.
type RecipientSource interface {
	GetRecipients(ctx context.Context) ([]string, error)
}

// Sender is the mail-transport contract: encrypted, authenticated
// delivery of one message to a recipient list.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}
