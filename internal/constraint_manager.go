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
	"fmt"
	"strconv"
	"sync"

	"github.com/antst/mzhpo/internal/config"
)

// Hard absolute safety envelopes per zone. User configuration can narrow
// these, never widen them.
const (
	zoneHardMin = 15.0
	zoneHardMax = 30.0
	tankHardMin = 35.0
	tankHardMax = 65.0

	comfortHardMin = 16.0
	comfortHardMax = 26.0
)

// allowedSteps is the small set of accepted setpoint granularities.
var allowedSteps = map[float64]bool{0.1: true, 0.25: true, 0.5: true, 1.0: true}

// ZoneConstraints holds the per-zone bounds, step and deadband.
type ZoneConstraints struct {
	Enabled  bool
	MinTemp  float64
	MaxTemp  float64
	TempStep float64
	Deadband float64
}

// ComfortBand is the allowed room range for the current occupancy state.
type ComfortBand struct {
	MinTemp float64
	MaxTemp float64
}

// ConstraintManager owns the per-zone constraints and resolves the active
// comfort band. Setters validate and fail fast; accessors hand out copies
// so callers cannot corrupt internal state.
type ConstraintManager struct {
	mu    sync.RWMutex
	zones map[ZoneID]ZoneConstraints

	occupied ComfortBand
	away     ComfortBand
}

// NewConstraintManager builds the manager from the zone configuration,
// falling back to built-in defaults wherever the config is silent. Invalid
// configured values surface as an error so misconfiguration is caught at
// startup rather than silently clamped.
func NewConstraintManager(cfg *config.ZonesConfig) (*ConstraintManager, error) {
	if cfg == nil {
		cfg = config.NewZonesConfig()
	}
	m := &ConstraintManager{
		zones: make(map[ZoneID]ZoneConstraints),
		occupied: ComfortBand{
			MinTemp: *cfg.Zone1.OccupiedMin,
			MaxTemp: *cfg.Zone1.OccupiedMax,
		},
		away: ComfortBand{
			MinTemp: *cfg.Zone1.AwayMin,
			MaxTemp: *cfg.Zone1.AwayMax,
		},
	}

	for zone, zc := range map[ZoneID]*config.ZoneConfig{Zone1: cfg.Zone1, Zone2: cfg.Zone2, Tank: cfg.Tank} {
		c := ZoneConstraints{
			Enabled:  *zc.Enabled,
			MinTemp:  *zc.MinTemp,
			MaxTemp:  *zc.MaxTemp,
			TempStep: *zc.TempStep,
			Deadband: *zc.Deadband,
		}
		if err := m.SetZoneConstraints(zone, c); err != nil {
			return nil, fmt.Errorf("zone %s: %w", zone, err)
		}
	}
	return m, nil
}

func hardEnvelope(zone ZoneID) (float64, float64) {
	if zone == Tank {
		return tankHardMin, tankHardMax
	}
	return zoneHardMin, zoneHardMax
}

// SetZoneConstraints validates and installs the constraints for one zone.
// On error the prior state is left untouched.
func (m *ConstraintManager) SetZoneConstraints(zone ZoneID, c ZoneConstraints) error {
	hardMin, hardMax := hardEnvelope(zone)

	if c.MaxTemp <= c.MinTemp {
		return fmt.Errorf("max temp %.1f must exceed min temp %.1f", c.MaxTemp, c.MinTemp)
	}
	if c.MinTemp < hardMin || c.MaxTemp > hardMax {
		return fmt.Errorf(
			"range [%.1f, %.1f] outside hard envelope [%.1f, %.1f]",
			c.MinTemp, c.MaxTemp, hardMin, hardMax,
		)
	}
	if !allowedSteps[c.TempStep] {
		return fmt.Errorf("temp step %.2f not in allowed set", c.TempStep)
	}
	if c.Deadband < 0 || c.Deadband >= c.MaxTemp-c.MinTemp {
		return fmt.Errorf("deadband %.2f invalid for range [%.1f, %.1f]", c.Deadband, c.MinTemp, c.MaxTemp)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[zone] = c
	return nil
}

// ZoneConstraints returns a copy of the constraints for one zone.
func (m *ConstraintManager) ZoneConstraints(zone ZoneID) (ZoneConstraints, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.zones[zone]
	return c, ok
}

// CurrentComfortBand resolves the active band for the occupancy state.
// Optional settings override the configured bands; missing or invalid
// values fall back gracefully. The result is always clamped to the hard
// comfort envelope regardless of what the user configured.
func (m *ConstraintManager) CurrentComfortBand(occupied bool, settings SettingsStore) ComfortBand {
	m.mu.RLock()
	band := m.away
	prefix := "band_away"
	if occupied {
		band = m.occupied
		prefix = "band_occupied"
	}
	m.mu.RUnlock()

	if settings != nil {
		if v, ok := readStoredTemp(settings, prefix+"_min"); ok {
			band.MinTemp = v
		}
		if v, ok := readStoredTemp(settings, prefix+"_max"); ok {
			band.MaxTemp = v
		}
	}

	if band.MinTemp < comfortHardMin {
		band.MinTemp = comfortHardMin
	}
	if band.MaxTemp > comfortHardMax {
		band.MaxTemp = comfortHardMax
	}
	if band.MaxTemp <= band.MinTemp {
		// Whatever produced this is untrustworthy; use the hard envelope.
		band = ComfortBand{MinTemp: comfortHardMin, MaxTemp: comfortHardMax}
	}
	return band
}

func readStoredTemp(settings SettingsStore, key string) (float64, bool) {
	raw, ok := settings.Get(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
