// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		input string
		want  PersonalityLevel
	}{
		{"standard", PersonalityStandard},
		{"std", PersonalityStandard},
		{"s", PersonalityStandard},
		{"minimal", PersonalityMinimal},
		{"MIN", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"q", PersonalityMachine},
		{"garbage", PersonalityStandard},
		{"", PersonalityStandard},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePersonalityLevel(tt.input))
		})
	}
}

func TestSetPersonalityLevel(t *testing.T) {
	original := GetPersonality().Level
	defer SetPersonalityLevel(original)

	SetPersonalityLevel(PersonalityMachine)
	assert.Equal(t, PersonalityMachine, GetPersonality().Level)

	SetPersonalityLevel(PersonalityMinimal)
	assert.Equal(t, PersonalityMinimal, GetPersonality().Level)
}

func TestSpinnerMachineMode(t *testing.T) {
	original := GetPersonality().Level
	defer SetPersonalityLevel(original)
	SetPersonalityLevel(PersonalityMachine)

	// Machine mode never starts the tea program, so Start/Stop must not
	// block or panic.
	s := NewSpinner("working")
	s.Start()
	s.UpdateMessage("still working")
	s.Stop()
	s.Stop() // second stop is a no-op
}

func TestIconRender(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow, IconBullet} {
		assert.NotEmpty(t, icon.Render())
	}
}
