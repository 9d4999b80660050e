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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyConstraintsClampsToRange(t *testing.T) {
	now := time.Now()

	res := ApplyConstraints(20.0, 35.0, 18.0, 24.0, 0.5, 0.3, 0, nil, now)
	assert.True(t, res.ClampApplied)
	assert.True(t, res.Changed)
	assert.Equal(t, 24.0, res.Constrained)

	res = ApplyConstraints(20.0, 5.0, 18.0, 24.0, 0.5, 0.3, 0, nil, now)
	assert.True(t, res.ClampApplied)
	assert.Equal(t, 18.0, res.Constrained)
}

func TestApplyConstraintsResultStaysInRange(t *testing.T) {
	now := time.Now()
	for proposed := -10.0; proposed <= 70.0; proposed += 0.7 {
		res := ApplyConstraints(21.0, proposed, 18.0, 24.0, 0.5, 0.0, 0, nil, now)
		assert.GreaterOrEqual(t, res.Constrained, 18.0, "proposed %.1f", proposed)
		assert.LessOrEqual(t, res.Constrained, 24.0, "proposed %.1f", proposed)
	}
}

func TestApplyConstraintsStepGrid(t *testing.T) {
	now := time.Now()
	res := ApplyConstraints(20.0, 21.3, 18.0, 24.0, 0.5, 0.3, 0, nil, now)
	assert.True(t, res.Changed)
	assert.True(t, res.StepApplied)
	assert.Equal(t, 21.5, res.Constrained)

	// The result always lands on min + n*step.
	steps := (res.Constrained - 18.0) / 0.5
	assert.InDelta(t, math.Round(steps), steps, 1e-9)
}

func TestApplyConstraintsStepNeverOvershootsMax(t *testing.T) {
	now := time.Now()
	// Clamped to 24.0, which rounds to 24.25 on a 0.5 grid anchored at
	// 18.25; the correction must pull it back under max.
	res := ApplyConstraints(20.0, 25.0, 18.25, 24.0, 0.5, 0.1, 0, nil, now)
	assert.Equal(t, 23.75, res.Constrained)
	assert.True(t, res.StepApplied)
}

func TestApplyConstraintsDeadband(t *testing.T) {
	now := time.Now()
	res := ApplyConstraints(21.0, 21.2, 18.0, 24.0, 0.5, 0.3, 0, nil, now)
	assert.False(t, res.Changed)
	assert.Equal(t, 21.2, res.Constrained)
	assert.Contains(t, res.Reason, "deadband")
}

func TestApplyConstraintsDeadbandBeforeRounding(t *testing.T) {
	// Raw delta 0.4 exceeds the 0.3 deadband even though rounding lands the
	// value on 21.5, only 0.1... the decision is made on the raw delta, so
	// rounding cannot swallow it.
	now := time.Now()
	res := ApplyConstraints(21.0, 21.4, 18.0, 24.0, 0.5, 0.3, 0, nil, now)
	assert.True(t, res.Changed)
	assert.Equal(t, 21.5, res.Constrained)
	assert.InDelta(t, 0.4, res.DeltaC, 1e-9)
}

func TestApplyConstraintsZeroDeadband(t *testing.T) {
	now := time.Now()
	res := ApplyConstraints(21.0, 21.0, 18.0, 24.0, 0.5, 0.0, 0, nil, now)
	assert.True(t, res.Changed, "zero delta is not below a zero deadband")
	assert.Equal(t, 21.0, res.Constrained)
}

func TestApplyConstraintsLockout(t *testing.T) {
	now := time.Now()
	last := now.Add(-10 * time.Minute)

	res := ApplyConstraints(20.0, 22.0, 18.0, 24.0, 0.5, 0.3, 30*time.Minute, &last, now)
	assert.True(t, res.Changed)
	assert.True(t, res.LockoutActive)
	assert.Equal(t, 22.0, res.Constrained)
	assert.Contains(t, res.Reason, "locked out")

	// Same change after the window expires.
	last = now.Add(-31 * time.Minute)
	res = ApplyConstraints(20.0, 22.0, 18.0, 24.0, 0.5, 0.3, 30*time.Minute, &last, now)
	assert.True(t, res.Changed)
	assert.False(t, res.LockoutActive)
}

func TestApplyConstraintsNoHistoryMeansNoLockout(t *testing.T) {
	res := ApplyConstraints(20.0, 22.0, 18.0, 24.0, 0.5, 0.3, 30*time.Minute, nil, time.Now())
	assert.False(t, res.LockoutActive)
}

func TestApplyConstraintsZeroStep(t *testing.T) {
	res := ApplyConstraints(20.0, 21.37, 18.0, 24.0, 0, 0.3, 0, nil, time.Now())
	assert.True(t, res.Changed)
	assert.False(t, res.StepApplied)
	assert.Equal(t, 21.37, res.Constrained)
}

func TestApplyConstraintsClampedDeltaInsideDeadband(t *testing.T) {
	// Proposal far above max, but the target already sits at max: after
	// clamping there is nothing to do.
	res := ApplyConstraints(24.0, 40.0, 18.0, 24.0, 0.5, 0.3, 0, nil, time.Now())
	assert.True(t, res.ClampApplied)
	assert.False(t, res.Changed)
}
