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
	"encoding/json"
	"math"
	"sync"

	"go.uber.org/zap"
)

const (
	MinK = 0.1
	MaxK = 10.0
	MinS = 0.01
	MaxS = 1.0

	DefaultK = 1.0
	DefaultS = 0.1

	modelStateKey = "thermal_model"
)

// Store is the key-value persistence the thermal package needs.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Model describes the building response with two scalar coefficients:
// K is the heating-rate gain, S the thermal-mass factor. Both stay inside
// their clamp ranges at all times.
type Model struct {
	mu sync.RWMutex
	k  float64
	s  float64
}

type modelState struct {
	K float64 `json:"K"`
	S float64 `json:"S"`
}

func NewModel() *Model {
	return &Model{k: DefaultK, s: DefaultS}
}

// LoadModel restores a model from the store, falling back to defaults on a
// missing key or garbage payload.
func LoadModel(store Store, log *zap.SugaredLogger) *Model {
	m := NewModel()
	if store == nil {
		return m
	}
	raw, ok := store.Get(modelStateKey)
	if !ok {
		return m
	}
	var st modelState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		if log != nil {
			log.Warnf("Discarding persisted thermal model: %v", err)
		}
		return m
	}
	m.Update(st.K, st.S)
	return m
}

func (m *Model) K() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.k
}

func (m *Model) S() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s
}

// Update clamps both coefficients into range; non-finite values fall back
// to the defaults.
func (m *Model) Update(k, s float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.k = ClampK(k)
	m.s = ClampS(s)
}

// Save persists the current coefficients.
func (m *Model) Save(store Store) error {
	if store == nil {
		return nil
	}
	m.mu.RLock()
	st := modelState{K: m.k, S: m.s}
	m.mu.RUnlock()

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return store.Set(modelStateKey, string(data))
}

func ClampK(k float64) float64 {
	if math.IsNaN(k) || math.IsInf(k, 0) {
		return DefaultK
	}
	if k < MinK {
		return MinK
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

func ClampS(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return DefaultS
	}
	if s < MinS {
		return MinS
	}
	if s > MaxS {
		return MaxS
	}
	return s
}
