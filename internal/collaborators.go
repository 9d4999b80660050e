/*
 * Copyright (c) 2025. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZHPO project.
 *
 * MZHPO is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package internal

import (
	"context"

	"github.com/antst/mzhpo/internal/db"
	"github.com/antst/mzhpo/internal/logger"
)

// DeviceReader supplies the current telemetry snapshot. May fail; a failed
// read aborts the cycle.
type DeviceReader interface {
	GetDeviceState(ctx context.Context) (*DeviceState, error)
}

// DeviceActuator issues commands to the heat pump. Failures are reported
// back but never corrupt engine state.
type DeviceActuator interface {
	SetZoneTemperature(ctx context.Context, zone ZoneID, tempC float64) error
	SetFlowTemperature(ctx context.Context, tempC float64) error
	SetCurveShift(ctx context.Context, shift float64) error
	SetTankTemperature(ctx context.Context, tempC float64) error
}

// PriceProvider supplies the day-ahead price curve.
type PriceProvider interface {
	GetPrices(ctx context.Context) (*PriceData, error)
}

// SettingsStore is the synchronous key-value persistence used for all
// engine state. Missing keys report ok=false, never an error.
type SettingsStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// AdaptiveLearner receives fire-and-forget feedback per cycle. The
// collaborator is optional; a nil learner skips the step silently.
type AdaptiveLearner interface {
	LearnFromOutcome(season Season, actualSavings float64, comfortViolations int, currentCOP float64)
}

// COPSampleRecorder persists accepted COP observations so predictor
// calibration survives restarts. Optional.
type COPSampleRecorder interface {
	RecordCOPSample(ctx context.Context, flowTemp, outdoorTemp, actualCOP float64) error
}

// dbSampleRecorder keeps a bounded log of COP observations in sqlite.
type dbSampleRecorder struct {
	queries *db.Queries
}

const copSampleRetention = 500

func NewDBSampleRecorder(queries *db.Queries) COPSampleRecorder {
	return &dbSampleRecorder{queries: queries}
}

func (r *dbSampleRecorder) RecordCOPSample(ctx context.Context, flowTemp, outdoorTemp, actualCOP float64) error {
	err := r.queries.InsertCopSample(ctx, db.InsertCopSampleParams{
		FlowTemp:    flowTemp,
		OutdoorTemp: outdoorTemp,
		ActualCop:   actualCOP,
		ObservedAt:  timeNowMilli(),
	})
	if err != nil {
		return err
	}
	return r.queries.PruneCopSamples(ctx, copSampleRetention)
}

// dbSettingsStore adapts the sqlite controller_values table onto the
// SettingsStore contract.
type dbSettingsStore struct {
	queries *db.Queries
}

func NewDBSettingsStore(queries *db.Queries) SettingsStore {
	return &dbSettingsStore{queries: queries}
}

func (s *dbSettingsStore) Get(key string) (string, bool) {
	val, err := s.queries.GetControllerValue(context.Background(), key)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *dbSettingsStore) Set(key, value string) error {
	return s.queries.UpsertControllerValue(
		context.Background(),
		db.UpsertControllerValueParams{Name: key, Value: value},
	)
}

// memSettingsStore is an in-memory SettingsStore, used in tests and as the
// fallback when no database is configured.
type memSettingsStore struct {
	values map[string]string
}

func NewMemSettingsStore() SettingsStore {
	return &memSettingsStore{values: make(map[string]string)}
}

func (s *memSettingsStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *memSettingsStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

// noopLearner is the documented default for the optional learner.
type noopLearner struct{}

func (noopLearner) LearnFromOutcome(Season, float64, int, float64) {}

// loggingLearner logs the feedback it receives; stands in for the real
// adaptive-parameters service when running standalone.
type loggingLearner struct{}

func (loggingLearner) LearnFromOutcome(season Season, actualSavings float64, comfortViolations int, currentCOP float64) {
	logger.L().Debugf(
		"Outcome feedback: season=%s savings=%.3f violations=%d cop=%.2f",
		season, actualSavings, comfortViolations, currentCOP,
	)
}
