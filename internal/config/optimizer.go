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

type OptimizerConfig struct {
	CheapPercentile    *float64 `yaml:"cheap_percentile"`
	MinChangeMinutes   *int     `yaml:"min_change_minutes"`
	StalePriceMinutes  *int     `yaml:"stale_price_minutes"`
	PlanningHorizonHrs *int     `yaml:"planning_horizon_hours"`

	// Relative weight of each scoring term; they need not sum to one.
	PriceWeight   *float64 `yaml:"price_weight"`
	CopWeight     *float64 `yaml:"cop_weight"`
	ThermalWeight *float64 `yaml:"thermal_weight"`

	OptimizeIntervalMin  *int `yaml:"optimize_interval_minutes"`
	CalibrateIntervalHrs *int `yaml:"calibrate_interval_hours"`
}

func NewOptimizerConfig() *OptimizerConfig {
	cfg := &OptimizerConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *OptimizerConfig) FillDefaults() {
	if c.CheapPercentile == nil {
		c.CheapPercentile = GetPTR(0.25)
	}
	if c.MinChangeMinutes == nil {
		c.MinChangeMinutes = GetPTR(30)
	}
	if c.StalePriceMinutes == nil {
		c.StalePriceMinutes = GetPTR(60)
	}
	if c.PlanningHorizonHrs == nil {
		c.PlanningHorizonHrs = GetPTR(6)
	}
	if c.PriceWeight == nil {
		c.PriceWeight = GetPTR(1.0)
	}
	if c.CopWeight == nil {
		c.CopWeight = GetPTR(0.6)
	}
	if c.ThermalWeight == nil {
		c.ThermalWeight = GetPTR(0.4)
	}
	if c.OptimizeIntervalMin == nil {
		c.OptimizeIntervalMin = GetPTR(60)
	}
	if c.CalibrateIntervalHrs == nil {
		c.CalibrateIntervalHrs = GetPTR(168)
	}
}
