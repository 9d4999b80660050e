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
	"encoding/json"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const (
	// Observations outside this band are outliers and never enter history.
	MinValidCOP = 1.0
	MaxValidCOP = 8.0

	historyCap         = 200
	minRangeSamples    = 10
	lowerPercentile    = 0.05
	upperPercentile    = 0.95
	normalizerStateKey = "cop_range"
)

// RangeState is the persisted shape of the normalizer.
type RangeState struct {
	MinObserved float64   `json:"minObserved"`
	MaxObserved float64   `json:"maxObserved"`
	UpdateCount int       `json:"updateCount"`
	History     []float64 `json:"history"`
}

// Normalizer maintains a rolling window of accepted COP observations and
// maps a COP onto [0,1] against the learned 5th/95th percentile bounds,
// which keeps scores comparable across seasons.
type Normalizer struct {
	mu    sync.RWMutex
	state RangeState
	store Store
	log   *zap.SugaredLogger
}

func NewNormalizer(store Store, log *zap.SugaredLogger) *Normalizer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	n := &Normalizer{store: store, log: log}
	n.load()
	return n
}

func (n *Normalizer) load() {
	if n.store == nil {
		return
	}
	raw, ok := n.store.Get(normalizerStateKey)
	if !ok {
		return
	}
	var st RangeState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		n.log.Warnf("Discarding persisted COP range state: %v", err)
		return
	}
	history := st.History[:0]
	for _, v := range st.History {
		if v >= MinValidCOP && v <= MaxValidCOP {
			history = append(history, v)
		}
	}
	st.History = history
	if len(st.History) > historyCap {
		st.History = st.History[len(st.History)-historyCap:]
	}
	if st.UpdateCount < 0 {
		st.UpdateCount = 0
	}
	n.state = st
}

// AddSample accepts one observed COP. Out-of-range values are rejected and
// logged, never stored. The percentile bounds are recomputed once enough
// samples exist, and the state is persisted after every accepted sample.
func (n *Normalizer) AddSample(cop float64) bool {
	if math.IsNaN(cop) || math.IsInf(cop, 0) || cop < MinValidCOP || cop > MaxValidCOP {
		n.log.Warnf("Rejecting COP observation %v outside [%.1f, %.1f]", cop, MinValidCOP, MaxValidCOP)
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.state.History = append(n.state.History, cop)
	if len(n.state.History) > historyCap {
		n.state.History = n.state.History[len(n.state.History)-historyCap:]
	}
	n.state.UpdateCount++

	if len(n.state.History) >= minRangeSamples {
		n.state.MinObserved = percentile(n.state.History, lowerPercentile)
		n.state.MaxObserved = percentile(n.state.History, upperPercentile)
	}

	n.persistLocked()
	return true
}

func (n *Normalizer) persistLocked() {
	if n.store == nil {
		return
	}
	data, err := json.Marshal(n.state)
	if err != nil {
		n.log.Errorf("Failed to marshal COP range state: %v", err)
		return
	}
	if err := n.store.Set(normalizerStateKey, string(data)); err != nil {
		n.log.Errorf("Failed to persist COP range state: %v", err)
	}
}

// Normalize maps cop linearly into [0,1] against the learned bounds.
// Returns exactly 0.5 while no range has been established.
func (n *Normalizer) Normalize(cop float64) float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	lo, hi := n.state.MinObserved, n.state.MaxObserved
	if hi <= lo {
		return 0.5
	}
	v := (cop - lo) / (hi - lo)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Range reports the learned bounds and whether they are established.
func (n *Normalizer) Range() (lo, hi float64, ok bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.MinObserved, n.state.MaxObserved, n.state.MaxObserved > n.state.MinObserved
}

func (n *Normalizer) SampleCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.state.History)
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
