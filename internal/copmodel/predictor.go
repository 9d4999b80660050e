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

package copmodel

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

const (
	kelvinOffset = 273.15

	DefaultEfficiency = 0.4
	minEfficiency     = 0.1
	maxEfficiency     = 0.8

	// Realistic band for a predicted COP. Carnot explodes as the lift
	// approaches zero, so the ceiling matters.
	MaxPredictedCOP = 6.0
	MinPredictedCOP = 1.0

	// Lift below this is numerically untrustworthy.
	minLift = 0.5

	MinCalibrationSamples = 7
	maxCalibrationSamples = 500

	efficiencyKey = "cop_efficiency"
)

// Store is the key-value persistence the predictor needs: missing keys
// report ok=false, never an error.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Sample is one observed (flow, outdoor, COP) triple used for efficiency
// calibration.
type Sample struct {
	FlowTemp    float64
	OutdoorTemp float64
	ActualCOP   float64
}

// Prediction carries the physics estimate plus how much to trust it.
type Prediction struct {
	PredictedCOP float64
	CarnotCOP    float64
	Confidence   float64
}

// Predictor estimates the heat pump COP from a Carnot cycle scaled by a
// calibrated efficiency factor. Calibration is a closed-form average over
// an append-only sample buffer.
type Predictor struct {
	mu         sync.RWMutex
	efficiency float64
	samples    []Sample
	store      Store
	log        *zap.SugaredLogger
}

func NewPredictor(store Store, log *zap.SugaredLogger) *Predictor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := &Predictor{
		efficiency: DefaultEfficiency,
		store:      store,
		log:        log,
	}
	p.loadEfficiency()
	return p
}

func (p *Predictor) loadEfficiency() {
	if p.store == nil {
		return
	}
	raw, ok := p.store.Get(efficiencyKey)
	if !ok {
		return
	}
	eff, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(eff) || eff < minEfficiency || eff > maxEfficiency {
		p.log.Warnf("Discarding persisted COP efficiency %q", raw)
		return
	}
	p.efficiency = eff
}

func (p *Predictor) Efficiency() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.efficiency
}

// CarnotCOP is the theoretical maximum for the given sink/source
// temperatures in degrees C. Lift at or below minLift returns the value at
// minLift instead of diverging.
func CarnotCOP(flowTempC, outdoorTempC float64) float64 {
	lift := flowTempC - outdoorTempC
	if lift < minLift {
		lift = minLift
	}
	sink := flowTempC + kelvinOffset
	return sink / lift
}

// Predict estimates the COP at the given operating point. The result is
// clamped to [MinPredictedCOP, MaxPredictedCOP]; confidence shrinks toward
// zero as the lift shrinks.
func (p *Predictor) Predict(flowTempC, outdoorTempC float64) Prediction {
	p.mu.RLock()
	eff := p.efficiency
	p.mu.RUnlock()

	carnot := CarnotCOP(flowTempC, outdoorTempC)
	predicted := carnot * eff
	if predicted > MaxPredictedCOP {
		predicted = MaxPredictedCOP
	}
	if predicted < MinPredictedCOP {
		predicted = MinPredictedCOP
	}

	lift := flowTempC - outdoorTempC
	confidence := lift / 20.0
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0.05 {
		confidence = 0.05
	}

	return Prediction{PredictedCOP: predicted, CarnotCOP: carnot, Confidence: confidence}
}

// AddCalibrationPoint appends an observed triple. Non-finite or
// out-of-range observations are dropped.
func (p *Predictor) AddCalibrationPoint(flowTemp, outdoorTemp, actualCOP float64) {
	if !isFinite(flowTemp) || !isFinite(outdoorTemp) || !isFinite(actualCOP) {
		p.log.Warnf("Dropping non-finite calibration point (%v, %v, %v)", flowTemp, outdoorTemp, actualCOP)
		return
	}
	if actualCOP < MinValidCOP || actualCOP > MaxValidCOP {
		p.log.Warnf("Dropping calibration point with COP %.2f outside [%.1f, %.1f]", actualCOP, MinValidCOP, MaxValidCOP)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, Sample{FlowTemp: flowTemp, OutdoorTemp: outdoorTemp, ActualCOP: actualCOP})
	if len(p.samples) > maxCalibrationSamples {
		p.samples = p.samples[len(p.samples)-maxCalibrationSamples:]
	}
}

func (p *Predictor) SampleCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.samples)
}

// Calibrate re-estimates the efficiency from the sample buffer and
// persists it. It refuses to run on fewer than MinCalibrationSamples.
func (p *Predictor) Calibrate() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.samples) < MinCalibrationSamples {
		return p.efficiency, fmt.Errorf(
			"need at least %d calibration samples, have %d", MinCalibrationSamples, len(p.samples),
		)
	}

	eff := calibrateEfficiency(p.samples)
	p.efficiency = eff

	if p.store != nil {
		if err := p.store.Set(efficiencyKey, strconv.FormatFloat(eff, 'f', -1, 64)); err != nil {
			p.log.Errorf("Failed to persist COP efficiency: %v", err)
		}
	}
	return eff, nil
}

// calibrateEfficiency is the pure closed-form regression: the mean of
// actual/Carnot ratios, clamped to the plausible efficiency band.
func calibrateEfficiency(samples []Sample) float64 {
	sum, n := 0.0, 0
	for _, s := range samples {
		carnot := CarnotCOP(s.FlowTemp, s.OutdoorTemp)
		if carnot <= 0 {
			continue
		}
		sum += s.ActualCOP / carnot
		n++
	}
	if n == 0 {
		return DefaultEfficiency
	}

	eff := sum / float64(n)
	if eff < minEfficiency {
		eff = minEfficiency
	}
	if eff > maxEfficiency {
		eff = maxEfficiency
	}
	return eff
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
