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

// Package config loads and validates the monitor configuration from a
// JSON or YAML file.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/netvigil/netvigil/pkg/logger"
)

// SNMPConfig holds transport settings shared by discovery and polling.
type SNMPConfig struct {
	Community string   `json:"community" yaml:"community"`
	Port      uint16   `json:"port" yaml:"port" validate:"omitempty,min=1"`
	Timeout   Duration `json:"timeout" yaml:"timeout"`
	Retries   int      `json:"retries" yaml:"retries" validate:"min=0,max=10"`
}

// ThresholdConfig supplies defaults applied to newly discovered
// devices and interfaces.
type ThresholdConfig struct {
	CPUPercent    float64 `json:"cpu_percent" yaml:"cpu_percent" validate:"min=0,max=100"`
	MemoryPercent float64 `json:"memory_percent" yaml:"memory_percent" validate:"min=0,max=100"`
	Failures      int     `json:"failures" yaml:"failures" validate:"min=1,max=10"`
	DropPercent   float64 `json:"drop_percent" yaml:"drop_percent" validate:"min=0"`
}

// SMTPConfig configures the mail transport used for notifications.
type SMTPConfig struct {
	Server   string `json:"server" yaml:"server"`
	Port     int    `json:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	From     string `json:"from" yaml:"from" validate:"omitempty,email"`
	Password string `json:"password" yaml:"password"`
}

// Config is the full monitor configuration surface.
type Config struct {
	PollInterval         Duration `json:"poll_interval" yaml:"poll_interval"`
	PollConcurrency      int      `json:"poll_concurrency" yaml:"poll_concurrency" validate:"min=1,max=100"`
	DiscoveryConcurrency int      `json:"discovery_concurrency" yaml:"discovery_concurrency" validate:"min=1,max=100"`

	SNMP       SNMPConfig      `json:"snmp" yaml:"snmp"`
	Thresholds ThresholdConfig `json:"thresholds" yaml:"thresholds"`
	SMTP       SMTPConfig      `json:"smtp" yaml:"smtp"`

	// Recipients is the static alert recipient list consumed when no
	// external recipient source is wired in.
	Recipients []string `json:"recipients" yaml:"recipients" validate:"dive,email"`

	Logging logger.Config `json:"logging" yaml:"logging"`
}

const (
	defaultPollInterval         = 60 * time.Second
	defaultPollConcurrency      = 20
	defaultDiscoveryConcurrency = 20
	defaultSNMPPort             = 161
	defaultSNMPTimeout          = 10 * time.Second
	defaultSNMPRetries          = 3
	defaultCPUThreshold         = 80.0
	defaultMemoryThreshold      = 80.0
	defaultFailureThreshold     = 3
	defaultDropThreshold        = 0.1
	defaultSMTPPort             = 587
)

// ApplyDefaults fills unset fields with the stock defaults.
func (c *Config) ApplyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}

	if c.PollConcurrency == 0 {
		c.PollConcurrency = defaultPollConcurrency
	}

	if c.DiscoveryConcurrency == 0 {
		c.DiscoveryConcurrency = defaultDiscoveryConcurrency
	}

	if c.SNMP.Community == "" {
		c.SNMP.Community = "public"
	}

	if c.SNMP.Port == 0 {
		c.SNMP.Port = defaultSNMPPort
	}

	if c.SNMP.Timeout <= 0 {
		c.SNMP.Timeout = Duration(defaultSNMPTimeout)
	}

	if c.SNMP.Retries == 0 {
		c.SNMP.Retries = defaultSNMPRetries
	}

	if c.Thresholds.CPUPercent == 0 {
		c.Thresholds.CPUPercent = defaultCPUThreshold
	}

	if c.Thresholds.MemoryPercent == 0 {
		c.Thresholds.MemoryPercent = defaultMemoryThreshold
	}

	if c.Thresholds.Failures == 0 {
		c.Thresholds.Failures = defaultFailureThreshold
	}

	if c.Thresholds.DropPercent == 0 {
		c.Thresholds.DropPercent = defaultDropThreshold
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = defaultSMTPPort
	}
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	return nil
}
