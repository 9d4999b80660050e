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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/antst/mzhpo/internal/config"
	"github.com/antst/mzhpo/internal/copmodel"
	"github.com/antst/mzhpo/internal/pricing"
	"github.com/antst/mzhpo/internal/thermal"
)

const (
	// Flow-temperature actuation envelope and gains.
	minFlowTemp   = 25.0
	maxFlowTemp   = 60.0
	flowPriceGain = 3.0

	// Heating-curve shift bounds (device steps of 1).
	maxCurveShift = 2.0

	// Bias from favorable COP on the tank target.
	tankCopGain = 2.0

	// Scale from degree-hours shifted to the savings estimate fed back to
	// the learner.
	savingsGain = 0.1

	defaultFlowAssumption = 35.0
)

// OptimizerDeps wires the engine to its models and external collaborators.
// Learner may be nil; everything else is required.
type OptimizerDeps struct {
	Config      *config.OptimizerConfig
	Constraints *ConstraintManager
	State       *StateManager
	Analyzer    *pricing.Analyzer
	Predictor   *copmodel.Predictor
	Normalizer  *copmodel.Normalizer
	Model       *thermal.Model
	Reader      DeviceReader
	Actuator    DeviceActuator
	Prices      PriceProvider
	Store       SettingsStore
	Learner     AdaptiveLearner
	Samples     COPSampleRecorder
	Log         *zap.SugaredLogger
}

// Optimizer decides, once per cycle, the safe setpoint adjustments for the
// climate zones and the hot-water tank. It is invoked serially by the
// service loop; it never spawns its own goroutines.
type Optimizer struct {
	cfg         *config.OptimizerConfig
	constraints *ConstraintManager
	state       *StateManager
	analyzer    *pricing.Analyzer
	predictor   *copmodel.Predictor
	normalizer  *copmodel.Normalizer
	model       *thermal.Model
	reader      DeviceReader
	actuator    DeviceActuator
	prices      PriceProvider
	store       SettingsStore
	learner     AdaptiveLearner
	samples     COPSampleRecorder
	log         *zap.SugaredLogger
	now         func() time.Time
}

func NewOptimizer(deps OptimizerDeps) *Optimizer {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.NewOptimizerConfig()
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	learner := deps.Learner
	if learner == nil {
		learner = noopLearner{}
	}
	return &Optimizer{
		cfg:         cfg,
		constraints: deps.Constraints,
		state:       deps.State,
		analyzer:    deps.Analyzer,
		predictor:   deps.Predictor,
		normalizer:  deps.Normalizer,
		model:       deps.Model,
		reader:      deps.Reader,
		actuator:    deps.Actuator,
		prices:      deps.Prices,
		store:       deps.Store,
		learner:     learner,
		samples:     deps.Samples,
		log:         log,
		now:         time.Now,
	}
}

func (o *Optimizer) minChange() time.Duration {
	return time.Duration(*o.cfg.MinChangeMinutes) * time.Minute
}

func (o *Optimizer) staleAfter() time.Duration {
	return time.Duration(*o.cfg.StalePriceMinutes) * time.Minute
}

func (o *Optimizer) horizon() time.Duration {
	return time.Duration(*o.cfg.PlanningHorizonHrs) * time.Hour
}

// RunCycle executes one full optimization pass. A failed fetch aborts the
// cycle with an error and no actuation; everything after the fetch maps
// onto a typed result, never an error.
func (o *Optimizer) RunCycle(ctx context.Context) (*OptimizationResult, error) {
	now := o.now()
	result := &OptimizationResult{
		CycleID:   uuid.New().String(),
		Action:    ActionNoChange,
		Timestamp: now,
		Success:   true,
	}

	ds, err := o.reader.GetDeviceState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch device state")
	}
	pd, err := o.prices.GetPrices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch prices")
	}

	if age := now.Sub(pd.Current.Time); age > o.staleAfter() {
		result.Reason = fmt.Sprintf("price data stale by %s, holding", age.Round(time.Minute))
		o.log.Warnf("Cycle %s: %s", result.CycleID, result.Reason)
		return result, nil
	}

	level := o.analyzer.ClassifyPoints(pd.Current.Price, pd.Prices)
	result.PriceLevel = level
	bias := pricing.PlanningBias(now, pd.Current.Price, pd.Prices, o.horizon())

	flowTemp := ds.FlowTemp
	if flowTemp <= 0 {
		flowTemp = defaultFlowAssumption
	}
	prediction := o.predictor.Predict(flowTemp, ds.OutdoorTemp)
	copScore := o.normalizer.Normalize(prediction.PredictedCOP)

	o.observeCOP(ctx, ds, flowTemp)

	o.log.Debugf(
		"Cycle %s: price %.3f (%s), bias %+.2fC, predicted COP %.2f (score %.2f, confidence %.2f)",
		result.CycleID, pd.Current.Price, level, bias, prediction.PredictedCOP, copScore, prediction.Confidence,
	)

	var outcomes []ZoneOutcome
	switch ds.Mode {
	case ModeRoom:
		outcomes = append(outcomes, o.optimizeRoomZones(ctx, ds, level, bias, copScore, prediction.Confidence, now)...)
	case ModeFlow:
		outcomes = append(outcomes, o.optimizeFlow(ctx, ds, level, bias, copScore, prediction.Confidence, now))
	case ModeCurve:
		outcomes = append(outcomes, o.optimizeCurve(ctx, ds, level, bias, copScore, prediction.Confidence, now))
	}

	// Tank optimization runs every cycle, independent of the heating mode.
	outcomes = append(outcomes, o.optimizeTank(ctx, ds, level, copScore, now))

	result.Outcomes = outcomes
	var reasons []string
	for _, oc := range outcomes {
		if oc.Changed {
			result.Changed = true
			if result.Action == ActionNoChange {
				result.Action = oc.Action
			}
		}
		if !oc.Success {
			result.Success = false
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", oc.Zone, oc.Reason))
	}
	result.Reason = strings.Join(reasons, "; ")
	result.Savings = o.estimateSavings(level, outcomes)

	o.feedLearner(ds, level, result, prediction.PredictedCOP, now)

	return result, nil
}

// observeCOP feeds a reported COP observation into both adaptive models
// and the persistent sample log.
func (o *Optimizer) observeCOP(ctx context.Context, ds *DeviceState, flowTemp float64) {
	if ds.ActualCOP == nil {
		return
	}
	cop := *ds.ActualCOP
	if !o.normalizer.AddSample(cop) {
		return
	}
	o.predictor.AddCalibrationPoint(flowTemp, ds.OutdoorTemp, cop)
	if o.samples != nil {
		if err := o.samples.RecordCOPSample(ctx, flowTemp, ds.OutdoorTemp, cop); err != nil {
			o.log.Errorf("Failed to log COP sample: %v", err)
		}
	}
}

// priceLevelScore maps a classification to [-1, 1]; positive means cheap.
func priceLevelScore(level pricing.Level) float64 {
	switch level {
	case pricing.VeryCheap:
		return 1.0
	case pricing.Cheap:
		return 0.5
	case pricing.Expensive:
		return -0.5
	case pricing.VeryExpensive:
		return -1.0
	default:
		return 0.0
	}
}

// zoneScore composes price, COP and thermal terms into one score in
// [-1, 1]. Favorable COP relaxes price-driven cuts (comfort protection)
// but never turns a cut into a raise.
func (o *Optimizer) zoneScore(level pricing.Level, copScore, copConfidence float64) float64 {
	score := priceLevelScore(level)
	if score < 0 {
		protection := *o.cfg.CopWeight * copScore * copConfidence
		if protection > 0.9 {
			protection = 0.9
		}
		score *= 1.0 - protection
	}
	score *= *o.cfg.PriceWeight
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

// thermalBias scales the planning bias by the building model: K amplifies
// the nudge, S rewards preheating a heavy building.
func (o *Optimizer) thermalBias(bias float64) float64 {
	adj := bias * o.model.K() * (0.5 + o.model.S()) * *o.cfg.ThermalWeight
	if adj > pricing.MaxPreheatBias {
		adj = pricing.MaxPreheatBias
	}
	if adj < pricing.MaxCoastBias {
		adj = pricing.MaxCoastBias
	}
	return adj
}

type roomZone struct {
	id      ZoneID
	current float64
}

func (o *Optimizer) roomZones(ds *DeviceState) []roomZone {
	zones := []roomZone{{id: Zone1, current: ds.SetTemp}}
	if ds.SetTemp2 != nil {
		zones = append(zones, roomZone{id: Zone2, current: *ds.SetTemp2})
	}
	return zones
}

func (o *Optimizer) optimizeRoomZones(
	ctx context.Context, ds *DeviceState, level pricing.Level,
	bias, copScore, copConfidence float64, now time.Time,
) []ZoneOutcome {
	var outcomes []ZoneOutcome
	band := o.constraints.CurrentComfortBand(ds.Occupied, o.store)
	score := o.zoneScore(level, copScore, copConfidence)

	for _, z := range o.roomZones(ds) {
		zc, ok := o.constraints.ZoneConstraints(z.id)
		if !ok || !zc.Enabled {
			continue
		}

		// Intersect the comfort band with the zone constraints.
		lo, hi := zc.MinTemp, zc.MaxTemp
		if band.MinTemp > lo {
			lo = band.MinTemp
		}
		if band.MaxTemp < hi {
			hi = band.MaxTemp
		}
		if hi <= lo {
			lo, hi = zc.MinTemp, zc.MaxTemp
		}

		mid := (lo + hi) / 2
		span := (hi - lo) / 2
		target := mid + span*score + o.thermalBias(bias)

		outcomes = append(outcomes, o.actuateZone(
			ctx, z.id, ActionSetpoint, z.current, target, lo, hi, zc, now,
			func(c context.Context, v float64) error {
				return o.actuator.SetZoneTemperature(c, z.id, v)
			},
		))
	}
	return outcomes
}

// optimizeFlow adjusts the flow-temperature command and never issues a
// direct room setpoint. The heating circuit shares Zone1's lockout record.
func (o *Optimizer) optimizeFlow(
	ctx context.Context, ds *DeviceState, level pricing.Level,
	bias, copScore, copConfidence float64, now time.Time,
) ZoneOutcome {
	base := ds.FlowSetTemp
	if base <= 0 {
		base = defaultFlowAssumption
	}

	cut := priceLevelScore(level) * flowPriceGain
	restore := 0.0
	if cut < 0 {
		// Comfort protection: favorable COP gives back part of the cut.
		restore = -cut * *o.cfg.CopWeight * copScore * copConfidence
	}
	target := base + cut + restore + o.thermalBias(bias)*2
	if target < minFlowTemp {
		target = minFlowTemp
	}
	if target > maxFlowTemp {
		target = maxFlowTemp
	}

	zc, _ := o.constraints.ZoneConstraints(Zone1)
	res := ApplyConstraints(
		base, target, minFlowTemp, maxFlowTemp, 0.5, zc.Deadband,
		o.minChange(), o.lastChangePtr(Zone1), now,
	)

	outcome := ZoneOutcome{Zone: Zone1, Action: ActionFlowTemp, Target: res.Constrained, Reason: res.Reason, Success: true}
	if !res.Changed || res.LockoutActive {
		return outcome
	}
	if err := o.actuator.SetFlowTemperature(ctx, res.Constrained); err != nil {
		o.log.Errorf("Failed to set flow temperature: %v", err)
		outcome.Success = false
		outcome.Reason = fmt.Sprintf("actuation failed: %v", err)
		return outcome
	}
	outcome.Changed = true
	o.recordChange(Zone1, res.Constrained, now)
	return outcome
}

// optimizeCurve adjusts the heating-curve shift; likewise no direct
// setpoint is issued in this mode.
func (o *Optimizer) optimizeCurve(
	ctx context.Context, ds *DeviceState, level pricing.Level,
	bias, copScore, copConfidence float64, now time.Time,
) ZoneOutcome {
	score := o.zoneScore(level, copScore, copConfidence)
	shift := clampF(roundHalfAway(score*maxCurveShift+o.thermalBias(bias)), -maxCurveShift, maxCurveShift)

	outcome := ZoneOutcome{Zone: Zone1, Action: ActionCurveShift, Target: shift, Success: true}
	if shift == ds.CurveShift {
		outcome.Reason = "curve shift already in place"
		return outcome
	}
	if o.state.IsLockedOut(Zone1, o.minChange(), now) {
		outcome.Reason = fmt.Sprintf(
			"curve shift %+.0f wanted but zone locked out for %s",
			shift, o.state.LockoutRemaining(Zone1, o.minChange(), now).Round(time.Second),
		)
		return outcome
	}
	if err := o.actuator.SetCurveShift(ctx, shift); err != nil {
		o.log.Errorf("Failed to set curve shift: %v", err)
		outcome.Success = false
		outcome.Reason = fmt.Sprintf("actuation failed: %v", err)
		return outcome
	}
	outcome.Changed = true
	outcome.Reason = fmt.Sprintf("curve shift %+.0f -> %+.0f", ds.CurveShift, shift)
	o.recordChange(Zone1, shift, now)
	return outcome
}

func (o *Optimizer) optimizeTank(
	ctx context.Context, ds *DeviceState, level pricing.Level,
	copScore float64, now time.Time,
) ZoneOutcome {
	zc, ok := o.constraints.ZoneConstraints(Tank)
	if !ok || !zc.Enabled {
		return ZoneOutcome{Zone: Tank, Action: ActionNoChange, Reason: "tank optimization disabled", Success: true}
	}

	mid := (zc.MinTemp + zc.MaxTemp) / 2
	span := (zc.MaxTemp - zc.MinTemp) / 2
	// Cheap energy preloads the tank; favorable COP nudges it further up.
	target := mid + span*priceLevelScore(level) + (copScore-0.5)*tankCopGain

	return o.actuateZone(
		ctx, Tank, ActionTankSetpoint, ds.TankSetTemp, target, zc.MinTemp, zc.MaxTemp, zc, now,
		o.actuator.SetTankTemperature,
	)
}

// actuateZone runs the shared constrain-then-actuate-then-record path.
func (o *Optimizer) actuateZone(
	ctx context.Context, zone ZoneID, action Action,
	current, target, lo, hi float64, zc ZoneConstraints, now time.Time,
	set func(context.Context, float64) error,
) ZoneOutcome {
	res := ApplyConstraints(
		current, target, lo, hi, zc.TempStep, zc.Deadband,
		o.minChange(), o.lastChangePtr(zone), now,
	)

	outcome := ZoneOutcome{Zone: zone, Action: action, Target: res.Constrained, Reason: res.Reason, Success: true}
	if !res.Changed {
		return outcome
	}
	if res.LockoutActive && !res.ClampApplied {
		// Only a clamp-forced safety correction may override the lockout.
		return outcome
	}
	if err := set(ctx, res.Constrained); err != nil {
		o.log.Errorf("Failed to actuate %s: %v", zone, err)
		outcome.Success = false
		outcome.Reason = fmt.Sprintf("actuation failed: %v", err)
		return outcome
	}
	outcome.Changed = true
	o.recordChange(zone, res.Constrained, now)
	return outcome
}

func (o *Optimizer) lastChangePtr(zone ZoneID) *time.Time {
	if t, ok := o.state.LastChangeTime(zone); ok {
		return &t
	}
	return nil
}

func (o *Optimizer) recordChange(zone ZoneID, setpoint float64, now time.Time) {
	o.state.RecordChange(zone, setpoint, now)
	if err := o.state.SaveToSettings(o.store); err != nil {
		o.log.Errorf("Failed to persist change record for %s: %v", zone, err)
	}
}

// estimateSavings converts the applied shifts into a rough per-cycle
// savings figure for the learner. Raising during cheap hours and cutting
// during expensive hours both count positive.
func (o *Optimizer) estimateSavings(level pricing.Level, outcomes []ZoneOutcome) float64 {
	score := priceLevelScore(level)
	savings := 0.0
	for _, oc := range outcomes {
		if oc.Changed {
			savings += savingsGain * score * score
		}
	}
	return savings
}

func (o *Optimizer) feedLearner(ds *DeviceState, level pricing.Level, result *OptimizationResult, cop float64, now time.Time) {
	violations := 0
	for _, oc := range result.Outcomes {
		if !oc.Success {
			violations++
		}
	}
	o.learner.LearnFromOutcome(SeasonForMonth(now.Month()), result.Savings, violations, cop)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundHalfAway(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return float64(int(v - 0.5))
}
