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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netvigil/netvigil/pkg/config"
	"github.com/netvigil/netvigil/pkg/core"
	"github.com/netvigil/netvigil/pkg/discovery"
	"github.com/netvigil/netvigil/pkg/logger"
	"github.com/netvigil/netvigil/pkg/notify"
	"github.com/netvigil/netvigil/pkg/poller"
	"github.com/netvigil/netvigil/pkg/registry"
	"github.com/netvigil/netvigil/pkg/snmp"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/netvigil/netvigil.json", "Path to config file")
	seedRange := flag.String("discover", "", "CIDR range or address to discover at startup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	mainLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store := registry.NewMemoryStore(mainLogger)

	if len(cfg.Recipients) > 0 {
		if err := store.SetRecipients(ctx, cfg.Recipients); err != nil {
			return err
		}
	}

	client := snmp.NewClient(snmp.ClientConfig{
		Community: cfg.SNMP.Community,
		Port:      cfg.SNMP.Port,
		Timeout:   time.Duration(cfg.SNMP.Timeout),
		Retries:   cfg.SNMP.Retries,
	})

	var dispatcher *notify.Dispatcher

	if cfg.SMTP.Server != "" {
		sender := notify.NewSMTPSender(notify.SMTPConfig{
			Server:   cfg.SMTP.Server,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Password: cfg.SMTP.Password,
		})

		dispatcher = notify.NewDispatcher(sender, store, mainLogger)
		defer dispatcher.Close()
	} else {
		mainLogger.Warn().Msg("SMTP not configured, alert delivery disabled")
	}

	scanner := discovery.NewScanner(client, store, discovery.Config{
		Concurrency:      cfg.DiscoveryConcurrency,
		CPUThreshold:     cfg.Thresholds.CPUPercent,
		MemoryThreshold:  cfg.Thresholds.MemoryPercent,
		FailureThreshold: cfg.Thresholds.Failures,
	}, mainLogger)

	p, err := poller.New(store, client, dispatcher, poller.Config{
		Interval:      time.Duration(cfg.PollInterval),
		Concurrency:   cfg.PollConcurrency,
		DropThreshold: cfg.Thresholds.DropPercent,
	}, mainLogger)
	if err != nil {
		return err
	}

	svc, err := core.NewService(store, scanner, p, mainLogger)
	if err != nil {
		return err
	}

	if *seedRange != "" {
		result, err := svc.TriggerDiscovery(ctx, *seedRange)
		if err != nil {
			return fmt.Errorf("startup discovery failed: %w", err)
		}

		mainLogger.Info().
			Int("scanned", result.TotalScanned).
			Int("found", result.DevicesFound).
			Msg("Startup discovery complete")
	}

	if err := p.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	mainLogger.Info().Msg("Shutting down")

	return nil
}
