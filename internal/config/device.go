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

// DeviceConfig describes the MQTT surface of the heat pump: one retained
// telemetry topic with a JSON state document, and one command topic per
// actuation kind.
type DeviceConfig struct {
	StateTopic     string `yaml:"state_topic"`
	Zone1SetTopic  string `yaml:"zone1_set_topic"`
	Zone2SetTopic  string `yaml:"zone2_set_topic"`
	FlowSetTopic   string `yaml:"flow_set_topic"`
	CurveSetTopic  string `yaml:"curve_set_topic"`
	TankSetTopic   string `yaml:"tank_set_topic"`
	StateMaxAgeSec *int   `yaml:"state_max_age_sec"`
}

func NewDeviceConfig() *DeviceConfig {
	cfg := &DeviceConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *DeviceConfig) FillDefaults() {
	if c.StateTopic == "" {
		c.StateTopic = "heatpump/state"
	}
	if c.Zone1SetTopic == "" {
		c.Zone1SetTopic = "heatpump/zone1/set_temperature"
	}
	if c.Zone2SetTopic == "" {
		c.Zone2SetTopic = "heatpump/zone2/set_temperature"
	}
	if c.FlowSetTopic == "" {
		c.FlowSetTopic = "heatpump/flow/set_temperature"
	}
	if c.CurveSetTopic == "" {
		c.CurveSetTopic = "heatpump/curve/set_shift"
	}
	if c.TankSetTopic == "" {
		c.TankSetTopic = "heatpump/tank/set_temperature"
	}
	if c.StateMaxAgeSec == nil {
		c.StateMaxAgeSec = GetPTR(900)
	}
}

// ThermalConfig points at the external thermal-learning subsystem.
type ThermalConfig struct {
	CharacteristicsTopic string `yaml:"characteristics_topic"`
	MaxAgeHours          *int   `yaml:"max_age_hours"`
}

func NewThermalConfig() *ThermalConfig {
	cfg := &ThermalConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *ThermalConfig) FillDefaults() {
	if c.CharacteristicsTopic == "" {
		c.CharacteristicsTopic = "thermal/characteristics"
	}
	if c.MaxAgeHours == nil {
		c.MaxAgeHours = GetPTR(24 * 14)
	}
}

// PriceConfig describes where the day-ahead price curve arrives.
type PriceConfig struct {
	Topic     string  `yaml:"topic"`
	JSONEntry *string `yaml:"json_entry,omitempty"`
}

func NewPriceConfig() *PriceConfig {
	cfg := &PriceConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *PriceConfig) FillDefaults() {
	if c.Topic == "" {
		c.Topic = "prices/day_ahead"
	}
}
