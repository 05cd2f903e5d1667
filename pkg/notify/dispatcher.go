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

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netvigil/netvigil/pkg/logger"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
)

// Dispatcher drains a bounded queue of alert events and delivers
// them by mail. Enqueue never blocks the caller: a full queue drops
// the event with a log line. Delivery failure is logged and never
// surfaces into the polling path.
type Dispatcher struct {
	sender     Sender
	recipients RecipientSource
	queue      chan Event
	logger     logger.Logger
	wg         sync.WaitGroup
	closeOnce  sync.Once
	done       chan struct{}
}

// NewDispatcher creates a Dispatcher and starts its delivery worker.
func NewDispatcher(sender Sender, recipients RecipientSource, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		sender:     sender,
		recipients: recipients,
		queue:      make(chan Event, defaultQueueSize),
		logger:     log.WithComponent("notify"),
		done:       make(chan struct{}),
	}

	d.wg.Add(1)

	go d.run()

	return d
}

// Enqueue hands an event to the delivery worker without blocking.
func (d *Dispatcher) Enqueue(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.Warn().
			Str("event_id", ev.ID).
			Str("host", ev.Hostname).
			Str("kind", string(ev.Kind)).
			Msg("Notification queue full, dropping event")
	}
}

// Close stops the worker after draining queued events.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.done:
			// Drain what is already queued before stopping.
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
	defer cancel()

	to, err := d.recipients.GetRecipients(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to load recipients")
		return
	}

	if len(to) == 0 {
		d.logger.Warn().Str("event_id", ev.ID).Msg("Alert raised but no recipients configured")
		return
	}

	subject := Subject(&ev)

	if err := d.sender.Send(ctx, to, subject, Body(&ev)); err != nil {
		d.logger.Error().
			Err(err).
			Str("event_id", ev.ID).
			Str("subject", subject).
			Int("recipients", len(to)).
			Msg("Notification delivery failed")

		return
	}

	d.logger.Info().
		Str("event_id", ev.ID).
		Str("subject", subject).
		Int("recipients", len(to)).
		Msg("Notification sent")
}
