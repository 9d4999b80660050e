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

func TestNormalizeWithoutRange(t *testing.T) {
	n := NewNormalizer(nil, nil)
	assert.Equal(t, 0.5, n.Normalize(3.0))
	assert.Equal(t, 0.5, n.Normalize(1.0))
	assert.Equal(t, 0.5, n.Normalize(8.0))
}

func TestNormalizeAgainstLearnedRange(t *testing.T) {
	n := NewNormalizer(nil, nil)
	// Uniform spread from 2.0 to 4.0.
	for i := 0; i <= 20; i++ {
		require.True(t, n.AddSample(2.0+float64(i)*0.1))
	}

	lo, hi, ok := n.Range()
	require.True(t, ok)
	assert.Less(t, lo, hi)

	assert.Equal(t, 0.0, n.Normalize(lo))
	assert.Equal(t, 0.0, n.Normalize(1.5))
	assert.Equal(t, 1.0, n.Normalize(hi))
	assert.Equal(t, 1.0, n.Normalize(7.0))

	mid := n.Normalize((lo + hi) / 2)
	assert.InDelta(t, 0.5, mid, 1e-9)
}

func TestAddSampleRejectsOutliers(t *testing.T) {
	n := NewNormalizer(nil, nil)

	assert.False(t, n.AddSample(0.5))
	assert.False(t, n.AddSample(9.0))
	assert.False(t, n.AddSample(math.NaN()))
	assert.False(t, n.AddSample(math.Inf(1)))
	assert.Equal(t, 0, n.SampleCount())

	assert.True(t, n.AddSample(MinValidCOP))
	assert.True(t, n.AddSample(MaxValidCOP))
	assert.Equal(t, 2, n.SampleCount())
}

func TestHistoryIsBounded(t *testing.T) {
	n := NewNormalizer(nil, nil)
	for i := 0; i < historyCap+50; i++ {
		n.AddSample(2.0 + math.Mod(float64(i), 3.0))
	}
	assert.Equal(t, historyCap, n.SampleCount())
}

func TestNoRangeBeforeMinimumSamples(t *testing.T) {
	n := NewNormalizer(nil, nil)
	for i := 0; i < minRangeSamples-1; i++ {
		n.AddSample(2.0 + float64(i)*0.2)
	}
	assert.Equal(t, 0.5, n.Normalize(3.0))
}

func TestNormalizerPersistsAndRestores(t *testing.T) {
	store := newMemStore()

	n := NewNormalizer(store, nil)
	for i := 0; i <= 20; i++ {
		n.AddSample(2.0 + float64(i)*0.1)
	}
	lo, hi, ok := n.Range()
	require.True(t, ok)

	restored := NewNormalizer(store, nil)
	rlo, rhi, rok := restored.Range()
	require.True(t, rok)
	assert.Equal(t, lo, rlo)
	assert.Equal(t, hi, rhi)
	assert.Equal(t, n.SampleCount(), restored.SampleCount())
}

func TestNormalizerDiscardsCorruptState(t *testing.T) {
	store := newMemStore()
	store.values["cop_range"] = "{not json"

	n := NewNormalizer(store, nil)
	assert.Equal(t, 0, n.SampleCount())
	assert.Equal(t, 0.5, n.Normalize(3.0))
}

func TestNormalizerFiltersPersistedOutliers(t *testing.T) {
	store := newMemStore()
	store.values["cop_range"] = `{"minObserved":2,"maxObserved":4,"updateCount":3,"history":[2.5,0.1,3.5,99]}`

	n := NewNormalizer(store, nil)
	assert.Equal(t, 2, n.SampleCount())
}
