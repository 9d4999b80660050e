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
	"math"
	"time"
)

// ConstraintResult is the full outcome of ApplyConstraints.
type ConstraintResult struct {
	Constrained   float64
	Changed       bool
	Reason        string
	ClampApplied  bool
	StepApplied   bool
	LockoutActive bool
	DeltaC        float64
}

// ApplyConstraints combines a raw proposal with the zone constraints and
// lockout state into a final safe decision. Pure and side-effect-free.
//
// Order matters: the proposal is clamped first, the deadband is evaluated
// on the un-rounded delta, and only then is the value rounded onto the
// step grid. Evaluating the deadband before rounding means a legitimate
// delta can never be swallowed by step rounding.
//
// LockoutActive only annotates the result; callers must not actuate a
// locked-out change unless it is a clamp-forced safety correction.
func ApplyConstraints(
	currentTarget, proposed, min, max, step, deadband float64,
	minChange time.Duration, lastChange *time.Time, now time.Time,
) ConstraintResult {
	res := ConstraintResult{}

	clamped := proposed
	if clamped < min {
		clamped = min
		res.ClampApplied = true
	}
	if clamped > max {
		clamped = max
		res.ClampApplied = true
	}

	res.DeltaC = clamped - currentTarget

	if math.Abs(res.DeltaC) < deadband {
		res.Constrained = clamped
		res.Changed = false
		res.Reason = fmt.Sprintf("delta %.2fC below deadband %.2fC", res.DeltaC, deadband)
		return res
	}

	rounded := clamped
	if step > 0 {
		rounded = min + math.Round((clamped-min)/step)*step
		if rounded > max {
			rounded -= step
		}
		if rounded != clamped {
			res.StepApplied = true
		}
	}
	res.Constrained = rounded
	res.Changed = true

	if lastChange != nil && now.Sub(*lastChange) < minChange {
		res.LockoutActive = true
		remaining := minChange - now.Sub(*lastChange)
		res.Reason = fmt.Sprintf("change of %.2fC allowed but zone locked out for %s", res.DeltaC, remaining.Round(time.Second))
		return res
	}

	res.Reason = fmt.Sprintf("change of %.2fC to %.2fC", res.DeltaC, res.Constrained)
	if res.ClampApplied {
		res.Reason += " (clamped)"
	}
	if res.StepApplied {
		res.Reason += " (step-rounded)"
	}
	return res
}
