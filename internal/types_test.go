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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonForMonth(t *testing.T) {
	want := map[time.Month]Season{
		time.January:   SeasonWinter,
		time.February:  SeasonWinter,
		time.March:     SeasonTransition,
		time.April:     SeasonTransition,
		time.May:       SeasonTransition,
		time.June:      SeasonSummer,
		time.July:      SeasonSummer,
		time.August:    SeasonSummer,
		time.September: SeasonTransition,
		time.October:   SeasonTransition,
		// November stays in transition: the winter window deliberately
		// starts at December so per-season learned parameters keep their
		// historical meaning.
		time.November: SeasonTransition,
		time.December: SeasonWinter,
	}
	for m, season := range want {
		assert.Equal(t, season, SeasonForMonth(m), m.String())
	}
}

func TestParseOperationMode(t *testing.T) {
	for _, mode := range []OperationMode{ModeRoom, ModeFlow, ModeCurve} {
		parsed, err := ParseOperationMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := ParseOperationMode("eco")
	assert.Error(t, err)

	_, err = ParseOperationMode("")
	assert.Error(t, err)
}

func TestOperationModeStringUnknown(t *testing.T) {
	assert.Equal(t, "unknown", OperationMode(99).String())
}
