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
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LastChangeRecord is the persisted anti-chatter state for one zone.
// Either field may be absent independently.
type LastChangeRecord struct {
	Setpoint  *float64 `json:"setpoint"`
	Timestamp *int64   `json:"timestamp"` // epoch milliseconds
}

// StateManager tracks, per zone, the last applied setpoint and when it was
// applied, and answers lockout questions. Zones are fully independent.
type StateManager struct {
	mu      sync.RWMutex
	records map[ZoneID]LastChangeRecord
	log     *zap.SugaredLogger
}

func NewStateManager(log *zap.SugaredLogger) *StateManager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &StateManager{
		records: make(map[ZoneID]LastChangeRecord),
		log:     log,
	}
}

// RecordChange notes an accepted setpoint change for the zone.
func (s *StateManager) RecordChange(zone ZoneID, setpoint float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := at.UnixMilli()
	s.records[zone] = LastChangeRecord{Setpoint: &setpoint, Timestamp: &ts}
}

// LastChange returns a copy of the record for the zone.
func (s *StateManager) LastChange(zone ZoneID) (LastChangeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[zone]
	return r, ok
}

// LastChangeTime returns the change timestamp as a time, if known.
func (s *StateManager) LastChangeTime(zone ZoneID) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[zone]
	if !ok || r.Timestamp == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*r.Timestamp), true
}

// IsLockedOut reports whether the zone changed less than minChange ago.
func (s *StateManager) IsLockedOut(zone ZoneID, minChange time.Duration, now time.Time) bool {
	return s.LockoutRemaining(zone, minChange, now) > 0
}

// LockoutRemaining returns how long the zone stays locked out, zero when
// it is free to change.
func (s *StateManager) LockoutRemaining(zone ZoneID, minChange time.Duration, now time.Time) time.Duration {
	last, ok := s.LastChangeTime(zone)
	if !ok {
		return 0
	}
	remaining := minChange - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func storeKey(zone ZoneID) string {
	return "last_change_" + string(zone)
}

// SaveToSettings persists every record through the settings store.
func (s *StateManager) SaveToSettings(store SettingsStore) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for zone, rec := range s.records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := store.Set(storeKey(zone), string(data)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromSettings restores records for the known zones, validating each
// field strictly and independently: a negative timestamp is discarded
// without dropping a valid setpoint, and vice versa. It never fails; a
// corrupt value simply leaves the zone without history.
func (s *StateManager) LoadFromSettings(store SettingsStore) {
	for _, zone := range []ZoneID{Zone1, Zone2, Tank} {
		raw, ok := store.Get(storeKey(zone))
		if !ok {
			continue
		}
		var fields struct {
			Setpoint  json.RawMessage `json:"setpoint"`
			Timestamp json.RawMessage `json:"timestamp"`
		}
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			s.log.Warnf("Discarding persisted state for %s: %v", zone, err)
			continue
		}

		var rec LastChangeRecord
		if len(fields.Setpoint) > 0 && string(fields.Setpoint) != "null" {
			var sp float64
			if err := json.Unmarshal(fields.Setpoint, &sp); err != nil {
				s.log.Warnf("Discarding non-numeric setpoint for %s", zone)
			} else {
				rec.Setpoint = &sp
			}
		}
		if len(fields.Timestamp) > 0 && string(fields.Timestamp) != "null" {
			var ts int64
			if err := json.Unmarshal(fields.Timestamp, &ts); err != nil || ts < 0 {
				s.log.Warnf("Discarding invalid timestamp for %s", zone)
			} else {
				rec.Timestamp = &ts
			}
		}
		if rec.Setpoint == nil && rec.Timestamp == nil {
			continue
		}
		s.mu.Lock()
		s.records[zone] = rec
		s.mu.Unlock()
	}
}
