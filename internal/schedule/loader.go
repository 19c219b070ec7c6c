// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package schedule loads the read-only posting schedule from YAML.
package schedule

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"socialpilot/internal/models"
)

// File is the on-disk layout:
//
//	schedules:
//	  - platform: twitter
//	    time_slot: "09:00"
//	    frequency: daily
//	    active: true
type File struct {
	Schedules []models.PostingSchedule `yaml:"schedules"`
}

// Parse decodes and validates schedule YAML. An empty payload yields no
// schedules.
func Parse(data []byte) ([]models.PostingSchedule, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schedule: decode: %w", err)
	}
	for i, s := range f.Schedules {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("schedule: entry %d: %w", i, err)
		}
	}
	return f.Schedules, nil
}

// Load reads path. An empty path means no schedule file is configured.
func Load(path string) ([]models.PostingSchedule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: read %s: %w", path, err)
	}
	out, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Active returns the active schedules for platform. An empty platform
// matches every schedule.
func Active(all []models.PostingSchedule, platform string) []models.PostingSchedule {
	var out []models.PostingSchedule
	for _, s := range all {
		if !s.Active {
			continue
		}
		if platform != "" && s.Platform != platform {
			continue
		}
		out = append(out, s)
	}
	return out
}
