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
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPConfig configures the authenticated STARTTLS mail transport.
type SMTPConfig struct {
	Server   string
	Port     int
	From     string
	Password string
}

// SMTPSender delivers messages over SMTP with STARTTLS and plain
// auth. Each Send dials a fresh session.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates a Sender for the given transport settings.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if s.config.Server == "" || s.config.From == "" {
		return ErrMailNotConfigured
	}

	client, err := mail.NewClient(s.config.Server,
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.From),
		mail.WithPassword(s.config.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMailConnect, err)
	}

	msg := mail.NewMsg()

	if err := msg.From(s.config.From); err != nil {
		return fmt.Errorf("%w: %w", ErrMailSend, err)
	}

	if err := msg.To(to...); err != nil {
		return fmt.Errorf("%w: %w", ErrMailSend, err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMailSend, err)
	}

	return nil
}
