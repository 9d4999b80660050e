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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlySeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = float64(i + 1)
	}
	return series
}

func TestClassify(t *testing.T) {
	a := NewAnalyzer()
	series := hourlySeries(24)

	tests := []struct {
		name  string
		price float64
		want  Level
	}{
		{"bottom of curve", 1.0, VeryCheap},
		{"second cheapest", 2.0, VeryCheap},
		{"cheap band", 5.0, Cheap},
		{"middle", 12.0, Normal},
		{"expensive band", 20.0, Expensive},
		{"top of curve", 24.0, VeryExpensive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Classify(tt.price, series))
		})
	}
}

func TestClassifyTiesResolveCheaper(t *testing.T) {
	a := NewAnalyzer()
	// Every point equal: no point is strictly below, so rank is zero and
	// the price lands in the cheapest bucket.
	series := []float64{10, 10, 10, 10, 10, 10, 10, 10}
	assert.Equal(t, VeryCheap, a.Classify(10, series))
}

func TestClassifyEmptySeries(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, Normal, a.Classify(5.0, nil))
}

func TestSetCheapPercentile(t *testing.T) {
	a := NewAnalyzer()
	require.NoError(t, a.SetCheapPercentile(0.1))
	assert.Equal(t, 0.1, a.CheapPercentile())

	t.Run("out of range keeps previous value", func(t *testing.T) {
		assert.Error(t, a.SetCheapPercentile(0.01))
		assert.Error(t, a.SetCheapPercentile(0.7))
		assert.Error(t, a.SetCheapPercentile(-0.25))
		assert.Equal(t, 0.1, a.CheapPercentile())
	})

	t.Run("boundaries accepted", func(t *testing.T) {
		assert.NoError(t, a.SetCheapPercentile(0.05))
		assert.NoError(t, a.SetCheapPercentile(0.5))
	})
}

func TestClassifyNarrowPercentile(t *testing.T) {
	a := NewAnalyzer()
	require.NoError(t, a.SetCheapPercentile(0.05))
	series := hourlySeries(100)

	// Only the very bottom qualifies as cheap now.
	assert.Equal(t, VeryCheap, a.Classify(1, series))
	assert.Equal(t, Cheap, a.Classify(5, series))
	assert.Equal(t, Normal, a.Classify(10, series))
	assert.Equal(t, VeryExpensive, a.Classify(100, series))
}

func TestClassifyPoints(t *testing.T) {
	a := NewAnalyzer()
	curve := make([]PricePoint, 24)
	for i := range curve {
		curve[i].Price = float64(i + 1)
	}
	assert.Equal(t, VeryCheap, a.ClassifyPoints(1, curve))
	assert.Equal(t, VeryExpensive, a.ClassifyPoints(24, curve))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "very_cheap", VeryCheap.String())
	assert.Equal(t, "very_expensive", VeryExpensive.String())
	assert.Equal(t, "unknown", Level(42).String())
}
