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
	"fmt"
	"time"
)

// Level buckets a price point relative to the rest of the day-ahead curve.
type Level int

const (
	VeryCheap Level = iota
	Cheap
	Normal
	Expensive
	VeryExpensive
)

func (l Level) String() string {
	switch l {
	case VeryCheap:
		return "very_cheap"
	case Cheap:
		return "cheap"
	case Normal:
		return "normal"
	case Expensive:
		return "expensive"
	case VeryExpensive:
		return "very_expensive"
	default:
		return "unknown"
	}
}

// PricePoint is one sample of the day-ahead curve.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

const (
	DefaultCheapPercentile = 0.25
	minCheapPercentile     = 0.05
	maxCheapPercentile     = 0.5
)

// Analyzer classifies a price against a rolling distribution using
// percentile thresholds. The cheap percentile is symmetric: a price in the
// top (1 - cheapPercentile) tail is expensive, the top half of either tail
// is the "very" bucket.
type Analyzer struct {
	cheapPercentile float64
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{cheapPercentile: DefaultCheapPercentile}
}

// SetCheapPercentile rejects values outside [0.05, 0.5] and keeps the
// previous threshold on error.
func (a *Analyzer) SetCheapPercentile(p float64) error {
	if p < minCheapPercentile || p > maxCheapPercentile {
		return fmt.Errorf(
			"cheap percentile %.3f out of range [%.2f, %.2f]",
			p, minCheapPercentile, maxCheapPercentile,
		)
	}
	a.cheapPercentile = p
	return nil
}

func (a *Analyzer) CheapPercentile() float64 {
	return a.cheapPercentile
}

// Classify ranks currentPrice within series. The rank counts only prices
// strictly below the current one, so ties land in the cheaper bucket.
func (a *Analyzer) Classify(currentPrice float64, series []float64) Level {
	if len(series) == 0 {
		return Normal
	}

	below := 0
	for _, p := range series {
		if p < currentPrice {
			below++
		}
	}
	rank := float64(below) / float64(len(series))

	cp := a.cheapPercentile
	switch {
	case rank <= cp/2:
		return VeryCheap
	case rank <= cp:
		return Cheap
	case rank >= 1.0-cp/2:
		return VeryExpensive
	case rank >= 1.0-cp:
		return Expensive
	default:
		return Normal
	}
}

// ClassifyPoints is Classify over a curve of PricePoints.
func (a *Analyzer) ClassifyPoints(currentPrice float64, curve []PricePoint) Level {
	series := make([]float64, len(curve))
	for i, p := range curve {
		series[i] = p.Price
	}
	return a.Classify(currentPrice, series)
}
