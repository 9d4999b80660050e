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

package thermal

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// Learning data below this confidence is not trusted for coefficient
	// derivation; the run is still a success, it just keeps the model.
	confidenceThreshold = 0.3

	// Relative width of the random nudge applied by basic calibration.
	basicNudgeWidth = 0.2

	// Guard against a vanishing cooling rate in the K derivation.
	minCoolingRate = 0.05

	confidenceKey = "model_confidence"

	MethodLearning = "learning"
	MethodBasic    = "basic"
)

// Characteristics is the read-only output of the external thermal-learning
// subsystem.
type Characteristics struct {
	HeatingRate       float64   `json:"heatingRate"`
	CoolingRate       float64   `json:"coolingRate"`
	OutdoorTempImpact float64   `json:"outdoorTempImpact"`
	WindImpact        float64   `json:"windImpact"`
	ThermalMass       float64   `json:"thermalMass"`
	ModelConfidence   float64   `json:"modelConfidence"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// CharacteristicsSource fetches the latest learned characteristics. It may
// be absent entirely; fetch failures push the calibrator onto the basic
// path.
type CharacteristicsSource interface {
	FetchCharacteristics() (*Characteristics, error)
}

// Result reports one calibration run. It is transient; only the model it
// produced is persisted.
type Result struct {
	OldK            float64
	NewK            float64
	OldS            float64
	NewS            float64
	Method          string
	Analysis        string
	Characteristics *Characteristics
	Timestamp       time.Time
	Success         bool
}

// Calibrator re-estimates the thermal model coefficients, preferring the
// learning subsystem and degrading to a small random exploration nudge
// when learning data is unavailable.
type Calibrator struct {
	model  *Model
	source CharacteristicsSource
	store  Store
	rng    *rand.Rand
	log    *zap.SugaredLogger
}

func NewCalibrator(model *Model, source CharacteristicsSource, store Store, log *zap.SugaredLogger) *Calibrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Calibrator{
		model:  model,
		source: source,
		store:  store,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log,
	}
}

// RunCalibration performs one calibration pass. It never panics and never
// returns an error: every failure mode maps onto either the basic fallback
// or an explicit Success=false result.
func (c *Calibrator) RunCalibration() Result {
	now := time.Now()

	if c.model == nil {
		c.log.Error("Calibration requested without an underlying thermal model")
		return Result{Timestamp: now, Analysis: "no thermal model", Success: false}
	}

	oldK, oldS := c.model.K(), c.model.S()

	ch, err := c.fetch()
	if err != nil {
		c.log.Warnf("Learning data unavailable, falling back to basic calibration: %v", err)
		return c.basicCalibration(oldK, oldS, now)
	}

	if ch.ModelConfidence <= confidenceThreshold {
		// Deliberate no-op: untrusted data keeps the current coefficients.
		newK, newS := ClampK(oldK), ClampS(oldS)
		c.model.Update(newK, newS)
		c.saveModel()
		return Result{
			OldK: oldK, NewK: newK, OldS: oldS, NewS: newS,
			Method:          MethodLearning,
			Analysis:        fmt.Sprintf("model confidence %.2f at or below %.2f, keeping coefficients", ch.ModelConfidence, confidenceThreshold),
			Characteristics: ch,
			Timestamp:       now,
			Success:         true,
		}
	}

	newK, kNote := deriveK(oldK, ch.HeatingRate, ch.CoolingRate)
	newS, sNote := deriveS(ch.ThermalMass)

	c.model.Update(newK, newS)
	c.saveModel()
	c.refreshConfidence(ch.ModelConfidence)

	analysis := fmt.Sprintf("K %s, S %s, confidence %.2f", kNote, sNote, ch.ModelConfidence)
	c.log.Infof("Calibration (learning): K %.3f -> %.3f, S %.3f -> %.3f (%s)", oldK, newK, oldS, newS, analysis)

	return Result{
		OldK: oldK, NewK: newK, OldS: oldS, NewS: newS,
		Method:          MethodLearning,
		Analysis:        analysis,
		Characteristics: ch,
		Timestamp:       now,
		Success:         true,
	}
}

func (c *Calibrator) fetch() (*Characteristics, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no characteristics source configured")
	}
	ch, err := c.source.FetchCharacteristics()
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("characteristics source returned nothing")
	}
	return ch, nil
}

func (c *Calibrator) basicCalibration(oldK, oldS float64, now time.Time) Result {
	// Slow exploration of the parameter space: a bounded random nudge on K.
	nudge := 1.0 + (c.rng.Float64()-0.5)*basicNudgeWidth
	newK := ClampK(oldK * nudge)
	newS := ClampS(oldS)

	c.model.Update(newK, newS)
	c.saveModel()

	analysis := fmt.Sprintf("random nudge x%.3f", nudge)
	c.log.Infof("Calibration (basic): K %.3f -> %.3f (%s)", oldK, newK, analysis)

	return Result{
		OldK: oldK, NewK: newK, OldS: oldS, NewS: newS,
		Method:    MethodBasic,
		Analysis:  analysis,
		Timestamp: now,
		Success:   true,
	}
}

func (c *Calibrator) saveModel() {
	if err := c.model.Save(c.store); err != nil {
		c.log.Errorf("Failed to persist thermal model: %v", err)
	}
}

func (c *Calibrator) refreshConfidence(confidence float64) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(confidenceKey, strconv.FormatFloat(confidence, 'f', -1, 64)); err != nil {
		c.log.Errorf("Failed to persist model confidence: %v", err)
	}
}

// deriveK maps the learned heating/cooling rates onto the gain factor.
// Non-finite inputs degrade to the clamped previous K.
func deriveK(oldK, heatingRate, coolingRate float64) (float64, string) {
	if !finite(heatingRate) || !finite(coolingRate) {
		return ClampK(oldK), "n/a (non-finite rates)"
	}
	cr := coolingRate
	if cr < minCoolingRate {
		cr = minCoolingRate
	}
	k := ClampK(heatingRate / cr)
	return k, fmt.Sprintf("from rates %.3f/%.3f", heatingRate, coolingRate)
}

// deriveS maps the learned thermal mass onto the storage factor.
func deriveS(thermalMass float64) (float64, string) {
	if !finite(thermalMass) {
		return DefaultS, "n/a (non-finite thermal mass)"
	}
	return ClampS(thermalMass), fmt.Sprintf("from thermal mass %.3f", thermalMass)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
