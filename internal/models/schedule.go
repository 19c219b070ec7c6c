// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Frequency describes how often a posting slot recurs.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekdays Frequency = "weekdays"
)

// PostingSchedule is a recurring publish slot. It is read-only
// configuration owned outside the core.
type PostingSchedule struct {
	Platform  string    `json:"platform" yaml:"platform"`
	TimeSlot  string    `json:"time_slot" yaml:"time_slot"` // HH:MM, 24h
	Frequency Frequency `json:"frequency" yaml:"frequency"`
	Active    bool      `json:"active" yaml:"active"`
}

// Clock parses the HH:MM time slot.
func (s PostingSchedule) Clock() (hour, minute int, err error) {
	return ParseClock(s.TimeSlot)
}

// Validate checks the slot and frequency.
func (s PostingSchedule) Validate() error {
	if strings.TrimSpace(s.Platform) == "" {
		return fmt.Errorf("%w: schedule platform is required", ErrValidation)
	}
	if _, _, err := s.Clock(); err != nil {
		return err
	}
	switch s.Frequency {
	case FrequencyDaily, FrequencyWeekdays:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrValidation, s.Frequency)
	}
	return nil
}

// CronSpec returns the standard five-field cron expression for the slot.
func (s PostingSchedule) CronSpec() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	hour, minute, _ := s.Clock()
	dow := "*"
	if s.Frequency == FrequencyWeekdays {
		dow = "1-5"
	}
	return fmt.Sprintf("%d %d * * %s", minute, hour, dow), nil
}

// ParseClock parses an "HH:MM" string into hour and minute.
func ParseClock(v string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", ErrValidation, v)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour in %q", ErrValidation, v)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute in %q", ErrValidation, v)
	}
	return hour, minute, nil
}
