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

func TestStateManagerRecordAndQuery(t *testing.T) {
	s := NewStateManager(nil)
	now := time.Now()

	s.RecordChange(Zone1, 21.5, now)

	rec, ok := s.LastChange(Zone1)
	require.True(t, ok)
	require.NotNil(t, rec.Setpoint)
	assert.Equal(t, 21.5, *rec.Setpoint)

	ts, ok := s.LastChangeTime(Zone1)
	require.True(t, ok)
	assert.Equal(t, now.UnixMilli(), ts.UnixMilli())

	_, ok = s.LastChange(Tank)
	assert.False(t, ok)
}

func TestLockoutPerZoneIndependence(t *testing.T) {
	s := NewStateManager(nil)
	now := time.Now()
	window := 30 * time.Minute

	s.RecordChange(Zone1, 21.0, now.Add(-10*time.Minute))
	s.RecordChange(Tank, 48.0, now.Add(-45*time.Minute))

	assert.True(t, s.IsLockedOut(Zone1, window, now))
	assert.False(t, s.IsLockedOut(Tank, window, now))
	assert.False(t, s.IsLockedOut(Zone2, window, now), "zone without history is never locked out")

	assert.InDelta(t, float64(20*time.Minute), float64(s.LockoutRemaining(Zone1, window, now)), float64(time.Second))
	assert.Equal(t, time.Duration(0), s.LockoutRemaining(Tank, window, now))
}

func TestStateManagerSaveLoadRoundTrip(t *testing.T) {
	store := NewMemSettingsStore()
	now := time.Now()

	s := NewStateManager(nil)
	s.RecordChange(Zone1, 21.5, now)
	s.RecordChange(Tank, 50.0, now.Add(-time.Hour))
	require.NoError(t, s.SaveToSettings(store))

	restored := NewStateManager(nil)
	restored.LoadFromSettings(store)

	rec, ok := restored.LastChange(Zone1)
	require.True(t, ok)
	assert.Equal(t, 21.5, *rec.Setpoint)
	assert.Equal(t, now.UnixMilli(), *rec.Timestamp)

	rec, ok = restored.LastChange(Tank)
	require.True(t, ok)
	assert.Equal(t, 50.0, *rec.Setpoint)

	_, ok = restored.LastChange(Zone2)
	assert.False(t, ok)
}

func TestLoadFromSettingsValidatesFieldsIndependently(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantSetpoint *float64
		wantTS       *int64
		wantLoaded   bool
	}{
		{
			name:       "garbage json",
			raw:        "not json",
			wantLoaded: false,
		},
		{
			name:         "negative timestamp keeps setpoint",
			raw:          `{"setpoint": 21.0, "timestamp": -5}`,
			wantSetpoint: ptrF(21.0),
			wantLoaded:   true,
		},
		{
			name:       "non-numeric setpoint keeps timestamp",
			raw:        `{"setpoint": "hot", "timestamp": 1700000000000}`,
			wantTS:     ptrI(1700000000000),
			wantLoaded: true,
		},
		{
			name:       "both fields null",
			raw:        `{"setpoint": null, "timestamp": null}`,
			wantLoaded: false,
		},
		{
			name:       "both fields invalid",
			raw:        `{"setpoint": [], "timestamp": "yesterday"}`,
			wantLoaded: false,
		},
		{
			name:         "timestamp only",
			raw:          `{"timestamp": 1700000000000}`,
			wantTS:       ptrI(1700000000000),
			wantLoaded:   true,
			wantSetpoint: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemSettingsStore()
			require.NoError(t, store.Set("last_change_zone1", tt.raw))

			s := NewStateManager(nil)
			s.LoadFromSettings(store)

			rec, ok := s.LastChange(Zone1)
			assert.Equal(t, tt.wantLoaded, ok)
			if !tt.wantLoaded {
				return
			}
			if tt.wantSetpoint != nil {
				require.NotNil(t, rec.Setpoint)
				assert.Equal(t, *tt.wantSetpoint, *rec.Setpoint)
			} else {
				assert.Nil(t, rec.Setpoint)
			}
			if tt.wantTS != nil {
				require.NotNil(t, rec.Timestamp)
				assert.Equal(t, *tt.wantTS, *rec.Timestamp)
			} else {
				assert.Nil(t, rec.Timestamp)
			}
		})
	}
}

func TestLoadFromSettingsMissingKeys(t *testing.T) {
	s := NewStateManager(nil)
	s.LoadFromSettings(NewMemSettingsStore())
	for _, zone := range []ZoneID{Zone1, Zone2, Tank} {
		_, ok := s.LastChange(zone)
		assert.False(t, ok)
	}
}

func TestRecordChangeOverwrites(t *testing.T) {
	s := NewStateManager(nil)
	base := time.Now()

	s.RecordChange(Zone1, 20.0, base.Add(-time.Hour))
	s.RecordChange(Zone1, 22.0, base)

	rec, ok := s.LastChange(Zone1)
	require.True(t, ok)
	assert.Equal(t, 22.0, *rec.Setpoint)
	assert.Equal(t, base.UnixMilli(), *rec.Timestamp)
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
