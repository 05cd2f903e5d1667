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

// Package snmp implements the polling transport: single-value GET and
// table-style bulk-walk over SNMP v2c using gosnmp.
package snmp

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// WalkRow is one flat bulk-walk result: the table column it belongs
// to and the row index extracted from the instance OID.
type WalkRow struct {
	BaseOID string
	Index   int
	Value   string
}

// Client issues polling-protocol requests against a device endpoint.
// Every call enforces the configured per-call timeout and retry count
// and reports transport failures as errors.
type Client interface {
	Get(ctx context.Context, target string, oids []string) (map[string]string, error)
	BulkWalk(ctx context.Context, target string, baseOIDs []string) ([]WalkRow, error)
}

// ClientConfig carries transport settings for GoSNMPClient.
type ClientConfig struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

const (
	defaultMaxRepetitions = 10
	defaultTimeout        = 10 * time.Second
)

// GoSNMPClient is the gosnmp-backed Client. Each call dials its own
// connection so concurrent polls of different devices never share
// transport state.
type GoSNMPClient struct {
	config ClientConfig
}

// NewClient creates a Client with the given transport settings.
func NewClient(config ClientConfig) *GoSNMPClient {
	if config.Port == 0 {
		config.Port = 161
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	if config.Community == "" {
		config.Community = "public"
	}

	return &GoSNMPClient{config: config}
}

func (c *GoSNMPClient) connect(target string) (*gosnmp.GoSNMP, error) {
	client := &gosnmp.GoSNMP{
		Target:             target,
		Port:               c.config.Port,
		Community:          c.config.Community,
		Version:            gosnmp.Version2c,
		Timeout:            c.config.Timeout,
		Retries:            c.config.Retries,
		MaxOids:            gosnmp.MaxOids,
		MaxRepetitions:     defaultMaxRepetitions,
		ExponentialTimeout: true,
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	return client, nil
}

// Get issues a single GET for the requested OIDs and returns the
// values that exist on the device, keyed by OID. NoSuchObject and
// NoSuchInstance variables are skipped; an answer with no usable
// variables reports ErrNoData.
func (c *GoSNMPClient) Get(ctx context.Context, target string, oids []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := c.connect(target)
	if err != nil {
		return nil, err
	}
	defer client.Conn.Close()

	result, err := client.Get(oids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGetFailed, err)
	}

	if result.Error != gosnmp.NoError {
		return nil, fmt.Errorf("%w: %s", ErrGetFailed, result.Error)
	}

	values := make(map[string]string, len(result.Variables))

	for _, v := range result.Variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
			continue
		}

		values[normalizeOID(v.Name)] = pduString(&v)
	}

	if len(values) == 0 {
		return nil, ErrNoData
	}

	return values, nil
}

// BulkWalk walks each base OID and returns the flat rows found under
// it. Rows carry the base OID and the trailing instance index so
// callers can group per-interface columns.
func (c *GoSNMPClient) BulkWalk(ctx context.Context, target string, baseOIDs []string) ([]WalkRow, error) {
	client, err := c.connect(target)
	if err != nil {
		return nil, err
	}
	defer client.Conn.Close()

	var rows []WalkRow

	for _, base := range baseOIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		normalBase := normalizeOID(base)

		err := client.BulkWalk(base, func(pdu gosnmp.SnmpPDU) error {
			name := normalizeOID(pdu.Name)
			if !strings.HasPrefix(name, normalBase+".") {
				return nil
			}

			idx, err := strconv.Atoi(name[strings.LastIndex(name, ".")+1:])
			if err != nil {
				return nil
			}

			rows = append(rows, WalkRow{
				BaseOID: normalBase,
				Index:   idx,
				Value:   pduString(&pdu),
			})

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrWalkFailed, base, err)
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}

	return rows, nil
}

// normalizeOID guarantees a leading dot so map lookups are stable
// regardless of how the agent spells instance names.
func normalizeOID(oid string) string {
	return "." + strings.TrimPrefix(oid, ".")
}

// pduString renders a PDU value the way the rest of the engine
// consumes it: integers as decimal, octet strings as text except
// physical addresses which render as colon-separated hex.
func pduString(pdu *gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		b, ok := pdu.Value.([]byte)
		if !ok {
			return fmt.Sprintf("%v", pdu.Value)
		}

		if isPhysAddress(pdu.Name) {
			return formatMAC(b)
		}

		return string(b)
	case gosnmp.ObjectIdentifier:
		if s, ok := pdu.Value.(string); ok {
			return s
		}

		return fmt.Sprintf("%v", pdu.Value)
	case gosnmp.TimeTicks, gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32, gosnmp.Uinteger32:
		return strconv.FormatUint(gosnmp.ToBigInt(pdu.Value).Uint64(), 10)
	case gosnmp.Integer:
		return strconv.FormatInt(gosnmp.ToBigInt(pdu.Value).Int64(), 10)
	default:
		return fmt.Sprintf("%v", pdu.Value)
	}
}

func isPhysAddress(oid string) bool {
	return strings.HasPrefix(normalizeOID(oid), ".1.3.6.1.2.1.2.2.1.6.")
}

func formatMAC(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	parts := make([]string, 0, len(b))
	for _, octet := range b {
		parts = append(parts, hex.EncodeToString([]byte{octet}))
	}

	return strings.Join(parts, ":")
}
