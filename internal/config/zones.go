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

package config

const (
	zone1DefaultMin = 18.0
	zone1DefaultMax = 24.0
	zone2DefaultMin = 18.0
	zone2DefaultMax = 24.0
	tankDefaultMin  = 40.0
	tankDefaultMax  = 55.0
	defaultTempStep = 0.5
	defaultDeadband = 0.3
	tankDefaultStep = 1.0
	tankDefaultBand = 1.0
	defaultOccMin   = 20.0
	defaultOccMax   = 23.0
	defaultAwayMin  = 17.0
	defaultAwayMax  = 21.0
)

// ZoneConfig carries the user-facing knobs for one optimized zone.
// Hard safety envelopes live in the ConstraintManager, not here.
type ZoneConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	MinTemp  *float64 `yaml:"min_temp"`
	MaxTemp  *float64 `yaml:"max_temp"`
	TempStep *float64 `yaml:"temp_step"`
	Deadband *float64 `yaml:"deadband"`

	OccupiedMin *float64 `yaml:"occupied_min,omitempty"`
	OccupiedMax *float64 `yaml:"occupied_max,omitempty"`
	AwayMin     *float64 `yaml:"away_min,omitempty"`
	AwayMax     *float64 `yaml:"away_max,omitempty"`
}

func (z *ZoneConfig) fillDefaults(minT, maxT, step, deadband float64) {
	if z.Enabled == nil {
		z.Enabled = GetPTR(true)
	}
	if z.MinTemp == nil {
		z.MinTemp = GetPTR(minT)
	}
	if z.MaxTemp == nil {
		z.MaxTemp = GetPTR(maxT)
	}
	if z.TempStep == nil {
		z.TempStep = GetPTR(step)
	}
	if z.Deadband == nil {
		z.Deadband = GetPTR(deadband)
	}
}

type ZonesConfig struct {
	Zone1 *ZoneConfig `yaml:"zone1"`
	Zone2 *ZoneConfig `yaml:"zone2"`
	Tank  *ZoneConfig `yaml:"tank"`
}

func NewZonesConfig() *ZonesConfig {
	cfg := &ZonesConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *ZonesConfig) FillDefaults() {
	if c.Zone1 == nil {
		c.Zone1 = &ZoneConfig{}
	}
	if c.Zone2 == nil {
		c.Zone2 = &ZoneConfig{Enabled: GetPTR(false)}
	}
	if c.Tank == nil {
		c.Tank = &ZoneConfig{}
	}
	c.Zone1.fillDefaults(zone1DefaultMin, zone1DefaultMax, defaultTempStep, defaultDeadband)
	c.Zone2.fillDefaults(zone2DefaultMin, zone2DefaultMax, defaultTempStep, defaultDeadband)
	c.Tank.fillDefaults(tankDefaultMin, tankDefaultMax, tankDefaultStep, tankDefaultBand)

	if c.Zone1.OccupiedMin == nil {
		c.Zone1.OccupiedMin = GetPTR(defaultOccMin)
	}
	if c.Zone1.OccupiedMax == nil {
		c.Zone1.OccupiedMax = GetPTR(defaultOccMax)
	}
	if c.Zone1.AwayMin == nil {
		c.Zone1.AwayMin = GetPTR(defaultAwayMin)
	}
	if c.Zone1.AwayMax == nil {
		c.Zone1.AwayMax = GetPTR(defaultAwayMax)
	}
}
