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

package pricing

import "time"

const (
	// PlanningBias output is clamped to this band.
	MaxPreheatBias = 0.5
	MaxCoastBias   = -0.3
)

// PlanningBias looks ahead in the price curve and returns a bounded
// temperature bias in degrees C. When the hours ahead are pricier than now
// the bias is positive (preheat while energy is still cheap); when cheaper
// hours are coming the bias is negative (coast and reheat later).
//
// Pure function: given the same curve and clock it always returns the same
// bias. An empty or single-point horizon yields zero.
func PlanningBias(now time.Time, currentPrice float64, curve []PricePoint, horizon time.Duration) float64 {
	if currentPrice <= 0 || len(curve) == 0 || horizon <= 0 {
		return 0
	}

	end := now.Add(horizon)
	sum, n := 0.0, 0
	for _, p := range curve {
		if p.Time.After(now) && !p.Time.After(end) {
			sum += p.Price
			n++
		}
	}
	if n == 0 {
		return 0
	}

	ahead := sum / float64(n)
	// Relative spread between the look-ahead average and now. +20% ahead
	// saturates the preheat bound, -20% the coast bound.
	spread := (ahead - currentPrice) / currentPrice
	bias := spread / 0.2
	if bias > 1 {
		bias = 1
	}
	if bias < -1 {
		bias = -1
	}

	if bias >= 0 {
		return bias * MaxPreheatBias
	}
	return -bias * MaxCoastBias
}
