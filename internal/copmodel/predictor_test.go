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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values map[string]string
	fail   bool
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (s *memStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *memStore) Set(key, value string) error {
	if s.fail {
		return assert.AnError
	}
	s.values[key] = value
	return nil
}

func TestPredictNeverExceedsCeiling(t *testing.T) {
	p := NewPredictor(nil, nil)

	// Near-zero and negative lift are the degenerate cases where Carnot
	// diverges.
	for _, outdoor := range []float64{34.9, 35.0, 35.5, 40.0} {
		pred := p.Predict(35.0, outdoor)
		assert.LessOrEqual(t, pred.PredictedCOP, MaxPredictedCOP, "outdoor=%v", outdoor)
		assert.GreaterOrEqual(t, pred.PredictedCOP, MinPredictedCOP, "outdoor=%v", outdoor)
	}
}

func TestPredictTypicalOperatingPoint(t *testing.T) {
	p := NewPredictor(nil, nil)
	pred := p.Predict(35.0, 5.0)

	// Carnot for 35/5 is ~10.3; scaled by the default efficiency.
	assert.InDelta(t, 10.27, pred.CarnotCOP, 0.1)
	assert.InDelta(t, pred.CarnotCOP*DefaultEfficiency, pred.PredictedCOP, 1e-9)
}

func TestPredictConfidenceShrinksWithLift(t *testing.T) {
	p := NewPredictor(nil, nil)

	big := p.Predict(45.0, 0.0)
	small := p.Predict(30.0, 28.0)
	assert.Greater(t, big.Confidence, small.Confidence)
	assert.GreaterOrEqual(t, small.Confidence, 0.05)
	assert.LessOrEqual(t, big.Confidence, 0.95)
}

func TestCalibrateRequiresMinimumSamples(t *testing.T) {
	p := NewPredictor(nil, nil)
	for i := 0; i < MinCalibrationSamples-1; i++ {
		p.AddCalibrationPoint(35, 5, 4.0)
	}
	_, err := p.Calibrate()
	require.Error(t, err)
	assert.Equal(t, DefaultEfficiency, p.Efficiency())
}

func TestCalibrateRecoversEfficiency(t *testing.T) {
	store := newMemStore()
	p := NewPredictor(store, nil)

	// Samples generated from a known efficiency of 0.35.
	for i := 0; i < 10; i++ {
		flow := 30.0 + float64(i)
		outdoor := float64(i) - 2.0
		p.AddCalibrationPoint(flow, outdoor, CarnotCOP(flow, outdoor)*0.35)
	}

	eff, err := p.Calibrate()
	require.NoError(t, err)
	assert.InDelta(t, 0.35, eff, 0.01)
	assert.Contains(t, store.values, "cop_efficiency")
}

func TestCalibrationPointValidation(t *testing.T) {
	p := NewPredictor(nil, nil)

	p.AddCalibrationPoint(math.NaN(), 5, 4)
	p.AddCalibrationPoint(35, math.Inf(1), 4)
	p.AddCalibrationPoint(35, 5, 0.2)  // below valid COP
	p.AddCalibrationPoint(35, 5, 12.0) // above valid COP
	assert.Equal(t, 0, p.SampleCount())

	p.AddCalibrationPoint(35, 5, 4.0)
	assert.Equal(t, 1, p.SampleCount())
}

func TestPredictorLoadsPersistedEfficiency(t *testing.T) {
	store := newMemStore()
	store.values["cop_efficiency"] = "0.52"
	p := NewPredictor(store, nil)
	assert.Equal(t, 0.52, p.Efficiency())
}

func TestPredictorDiscardsGarbageEfficiency(t *testing.T) {
	for _, raw := range []string{"not-a-number", "9.5", "-1", "NaN"} {
		store := newMemStore()
		store.values["cop_efficiency"] = raw
		p := NewPredictor(store, nil)
		assert.Equal(t, DefaultEfficiency, p.Efficiency(), "raw=%q", raw)
	}
}

func TestCalibrateEfficiencyClamps(t *testing.T) {
	// Absurd observed COPs cannot push the efficiency outside its band.
	// Big lift makes Carnot small, so a COP of 8 implies an impossible
	// efficiency; tiny lift makes Carnot huge, implying a negligible one.
	high := make([]Sample, 10)
	for i := range high {
		high[i] = Sample{FlowTemp: 35, OutdoorTemp: -20, ActualCOP: 8.0}
	}
	assert.Equal(t, maxEfficiency, calibrateEfficiency(high))

	low := make([]Sample, 10)
	for i := range low {
		low[i] = Sample{FlowTemp: 35, OutdoorTemp: 34, ActualCOP: 1.0}
	}
	assert.Equal(t, minEfficiency, calibrateEfficiency(low))
}
