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
	"time"

	"github.com/antst/mzhpo/internal/pricing"
)

// ZoneID identifies one optimized climate zone or the hot-water tank.
type ZoneID string

const (
	Zone1 ZoneID = "zone1"
	Zone2 ZoneID = "zone2"
	Tank  ZoneID = "tank"
)

// OperationMode is how the device wants its heating demand expressed.
type OperationMode int

const (
	ModeRoom OperationMode = iota
	ModeFlow
	ModeCurve
)

func (m OperationMode) String() string {
	switch m {
	case ModeRoom:
		return "room"
	case ModeFlow:
		return "flow"
	case ModeCurve:
		return "curve"
	default:
		return "unknown"
	}
}

func ParseOperationMode(s string) (OperationMode, error) {
	switch s {
	case "room":
		return ModeRoom, nil
	case "flow":
		return ModeFlow, nil
	case "curve":
		return ModeCurve, nil
	default:
		return ModeRoom, fmt.Errorf("unknown operation mode %q", s)
	}
}

// Season tags learner feedback so seasonal behaviour is kept apart.
type Season string

const (
	SeasonWinter     Season = "winter"
	SeasonSummer     Season = "summer"
	SeasonTransition Season = "transition"
)

// SeasonForMonth classifies a month. November deliberately stays in
// transition; the winter window starts at December (legacy boundary,
// kept for continuity of the learned per-season parameters).
func SeasonForMonth(m time.Month) Season {
	switch {
	case m == time.December || m <= time.February:
		return SeasonWinter
	case m >= time.June && m <= time.August:
		return SeasonSummer
	default:
		return SeasonTransition
	}
}

// DeviceState is one telemetry snapshot from the heat pump.
type DeviceState struct {
	RoomTemp     float64       `json:"roomTemp"`
	SetTemp      float64       `json:"setTemp"`
	RoomTemp2    *float64      `json:"roomTemp2,omitempty"`
	SetTemp2     *float64      `json:"setTemp2,omitempty"`
	OutdoorTemp  float64       `json:"outdoorTemp"`
	FlowTemp     float64       `json:"flowTemp"`
	FlowSetTemp  float64       `json:"flowSetTemp"`
	CurveShift   float64       `json:"curveShift"`
	TankTemp     float64       `json:"tankTemp"`
	TankSetTemp  float64       `json:"tankSetTemp"`
	ActualCOP    *float64      `json:"cop,omitempty"`
	Occupied     bool          `json:"occupied"`
	Mode         OperationMode `json:"-"`
	ModeRaw      string        `json:"operationMode"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PriceData is the day-ahead curve plus the point valid right now.
type PriceData struct {
	Current pricing.PricePoint   `json:"current"`
	Prices  []pricing.PricePoint `json:"prices"`
}

// Action is what one optimization cycle decided to do.
type Action string

const (
	ActionNoChange     Action = "no_change"
	ActionSetpoint     Action = "setpoint"
	ActionFlowTemp     Action = "flow_temp"
	ActionCurveShift   Action = "curve_shift"
	ActionTankSetpoint Action = "tank_setpoint"
)

// ZoneOutcome is the per-target slice of an optimization result.
type ZoneOutcome struct {
	Zone    ZoneID  `json:"zone"`
	Action  Action  `json:"action"`
	Target  float64 `json:"target"`
	Changed bool    `json:"changed"`
	Reason  string  `json:"reason"`
	Success bool    `json:"success"`
}

// OptimizationResult is the transient outcome of one cycle.
type OptimizationResult struct {
	CycleID    string        `json:"cycleId"`
	Action     Action        `json:"action"`
	PriceLevel pricing.Level `json:"-"`
	Reason     string        `json:"reason"`
	Changed    bool          `json:"changed"`
	Success    bool          `json:"success"`
	Savings    float64       `json:"savings,omitempty"`
	Outcomes   []ZoneOutcome `json:"outcomes,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
