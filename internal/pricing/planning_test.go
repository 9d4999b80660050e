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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func curveFrom(now time.Time, prices ...float64) []PricePoint {
	curve := make([]PricePoint, len(prices))
	for i, p := range prices {
		curve[i] = PricePoint{Time: now.Add(time.Duration(i+1) * time.Hour), Price: p}
	}
	return curve
}

func TestPlanningBiasPreheatsBeforeExpensiveWindow(t *testing.T) {
	now := time.Now()
	curve := curveFrom(now, 30, 35, 40, 45)

	bias := PlanningBias(now, 10, curve, 6*time.Hour)
	assert.Greater(t, bias, 0.0)
	assert.LessOrEqual(t, bias, MaxPreheatBias)
	// A 3x jump saturates the bound.
	assert.Equal(t, MaxPreheatBias, bias)
}

func TestPlanningBiasCoastsBeforeCheapWindow(t *testing.T) {
	now := time.Now()
	curve := curveFrom(now, 5, 4, 3, 2)

	bias := PlanningBias(now, 40, curve, 6*time.Hour)
	assert.Less(t, bias, 0.0)
	assert.GreaterOrEqual(t, bias, MaxCoastBias)
	assert.Equal(t, MaxCoastBias, bias)
}

func TestPlanningBiasFlatCurve(t *testing.T) {
	now := time.Now()
	curve := curveFrom(now, 20, 20, 20, 20)
	assert.Equal(t, 0.0, PlanningBias(now, 20, curve, 6*time.Hour))
}

func TestPlanningBiasSmallSpread(t *testing.T) {
	now := time.Now()
	// 10% above now is half the saturation spread.
	curve := curveFrom(now, 22, 22, 22)
	bias := PlanningBias(now, 20, curve, 6*time.Hour)
	assert.InDelta(t, MaxPreheatBias/2, bias, 1e-9)
}

func TestPlanningBiasDegenerateInputs(t *testing.T) {
	now := time.Now()
	curve := curveFrom(now, 30, 40)

	assert.Equal(t, 0.0, PlanningBias(now, 0, curve, 6*time.Hour))
	assert.Equal(t, 0.0, PlanningBias(now, -5, curve, 6*time.Hour))
	assert.Equal(t, 0.0, PlanningBias(now, 20, nil, 6*time.Hour))
	assert.Equal(t, 0.0, PlanningBias(now, 20, curve, 0))
}

func TestPlanningBiasHorizonExcludesPast(t *testing.T) {
	now := time.Now()
	curve := []PricePoint{
		{Time: now.Add(-time.Hour), Price: 100}, // behind us, ignored
		{Time: now.Add(time.Hour), Price: 20},
	}
	assert.Equal(t, 0.0, PlanningBias(now, 20, curve, 6*time.Hour))
}

func TestPlanningBiasDeterministic(t *testing.T) {
	now := time.Now()
	curve := curveFrom(now, 18, 25, 31, 12)
	first := PlanningBias(now, 20, curve, 4*time.Hour)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, PlanningBias(now, 20, curve, 4*time.Hour))
	}
}
