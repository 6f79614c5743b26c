// Package nvs models the non-volatile store named as an external
// collaborator in the firmware's scope (global settings, per-axis
// limits, the G54-G59 coordinate systems, G28/G30 reference positions,
// startup lines, and the build-info string). Nothing else in this
// module's dependency surface can stand in for EEPROM, so the contract
// is implemented here directly: a small binary file with one XOR
// checksum byte trailing the whole image and a version byte at
// offset zero that triggers a wipe-and-restore on mismatch.
package nvs

/*
 * gnc-motion - CNC motion-control firmware
 *
 * Copyright 2026, gnc-motion contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */


import (
	"errors"
	"fmt"
)

// AxisCount is the number of Cartesian axes this build supports. The
// parser rejects K words when AxisCount < 3 per spec.md §9's open
// question on N_AXIS=2 configurations.
const AxisCount = 3

// Setting numbers, grbl-compatible so that $$ dumps and original
// grbl-sender tooling remain meaningful.
const (
	SettingStepPulseUsec   = 0
	SettingStepIdleDelay   = 1
	SettingStepInvertMask  = 2
	SettingDirInvertMask   = 3
	SettingStepEnableInv   = 4
	SettingLimitInvertMask = 5
	SettingProbeInvert     = 6
	SettingStatusMask      = 10
	SettingJunctionDev     = 11
	SettingArcTolerance    = 12
	SettingReportInches    = 13
	SettingSoftLimits      = 20
	SettingHardLimits      = 21
	SettingHomingEnable    = 22
	SettingHomingDirInvert = 23
	SettingHomingFeed      = 24
	SettingHomingSeek      = 25
	SettingHomingDebounce  = 26
	SettingHomingPulloff   = 27
	SettingMaxSpindleSpeed = 30
	SettingMinSpindleSpeed = 31
	SettingLaserMode       = 32

	// Per-axis blocks: add axis index (0=X,1=Y,2=Z) to the base.
	SettingStepsPerMMBase   = 100
	SettingMaxRateBase      = 110
	SettingAccelerationBase = 120
	SettingMaxTravelBase    = 130
)

// ErrChecksum is returned when a record's stored checksum does not
// match its contents; the caller falls back to defaults for that record.
var ErrChecksum = errors.New("nvs: checksum mismatch")

// CurrentVersion is bumped whenever the record layout changes
// incompatibly; a stored file with a different version is wiped.
const CurrentVersion = 3

// Store holds the full non-volatile image in memory; Load/Save move it
// to and from a backing file.
type Store struct {
	Version  byte
	Settings map[int]float64

	// CoordSystems[0] is G54 ... CoordSystems[5] is G59.
	CoordSystems [6][AxisCount]float64
	G28          [AxisCount]float64
	G30          [AxisCount]float64
	ToolLength   float64 // G43.1 offset, Z only, per spec.md non-goal note

	StartupLines [2]string
	BuildInfo    string
}

// Default returns a Store populated with grbl-style factory defaults.
func Default() *Store {
	s := &Store{
		Version:  CurrentVersion,
		Settings: defaultSettings(),
	}
	return s
}

func defaultSettings() map[int]float64 {
	m := map[int]float64{
		SettingStepPulseUsec:   10,
		SettingStepIdleDelay:   25,
		SettingStepInvertMask:  0,
		SettingDirInvertMask:   0,
		SettingStepEnableInv:   0,
		SettingLimitInvertMask: 0,
		SettingProbeInvert:     0,
		SettingStatusMask:      1,
		SettingJunctionDev:     0.010,
		SettingArcTolerance:    0.002,
		SettingReportInches:    0,
		SettingSoftLimits:      0,
		SettingHardLimits:      0,
		SettingHomingEnable:    0,
		SettingHomingDirInvert: 0,
		SettingHomingFeed:      25,
		SettingHomingSeek:      500,
		SettingHomingDebounce:  250,
		SettingHomingPulloff:   1,
		SettingMaxSpindleSpeed: 1000,
		SettingMinSpindleSpeed: 0,
		SettingLaserMode:       0,
	}
	stepsPerMM := [AxisCount]float64{250, 250, 250}
	maxRate := [AxisCount]float64{500, 500, 500}
	accel := [AxisCount]float64{10, 10, 10}
	maxTravel := [AxisCount]float64{200, 200, 200}
	for a := 0; a < AxisCount; a++ {
		m[SettingStepsPerMMBase+a] = stepsPerMM[a]
		m[SettingMaxRateBase+a] = maxRate[a]
		m[SettingAccelerationBase+a] = accel[a]
		m[SettingMaxTravelBase+a] = maxTravel[a]
	}
	return m
}

// Get returns a setting's value, or ok=false if N is unknown.
func (s *Store) Get(n int) (float64, bool) {
	v, ok := s.Settings[n]
	return v, ok
}

// Set writes a setting's value as given. Neither Set nor the `$n=value`
// command handler checks the value's range or whether it must be an
// integer.
func (s *Store) Set(n int, v float64) {
	if s.Settings == nil {
		s.Settings = map[int]float64{}
	}
	s.Settings[n] = v
}

func (s *Store) StepsPerMM(axis int) float64 { return s.axisSetting(SettingStepsPerMMBase, axis) }
func (s *Store) MaxRate(axis int) float64    { return s.axisSetting(SettingMaxRateBase, axis) }
func (s *Store) Acceleration(axis int) float64 {
	return s.axisSetting(SettingAccelerationBase, axis)
}
func (s *Store) MaxTravel(axis int) float64 { return s.axisSetting(SettingMaxTravelBase, axis) }

func (s *Store) axisSetting(base, axis int) float64 {
	v, _ := s.Get(base + axis)
	return v
}

func (s *Store) JunctionDeviation() float64 {
	v, _ := s.Get(SettingJunctionDev)
	return v
}

func (s *Store) ArcTolerance() float64 {
	v, _ := s.Get(SettingArcTolerance)
	return v
}

func (s *Store) SoftLimitsEnabled() bool { return flagSet(s, SettingSoftLimits) }
func (s *Store) HardLimitsEnabled() bool { return flagSet(s, SettingHardLimits) }
func (s *Store) HomingEnabled() bool     { return flagSet(s, SettingHomingEnable) }

func flagSet(s *Store, n int) bool {
	v, _ := s.Get(n)
	return v != 0
}

// CoordinateOffset returns the persisted offset for work-coordinate
// system index 1..6 (G54..G59).
func (s *Store) CoordinateOffset(system int) ([AxisCount]float64, error) {
	if system < 1 || system > 6 {
		return [AxisCount]float64{}, fmt.Errorf("nvs: coordinate system %d out of range", system)
	}
	return s.CoordSystems[system-1], nil
}

// SetCoordinateOffset persists an offset for G54..G59 (system 1..6).
// The caller is responsible for draining the planner first (§5).
func (s *Store) SetCoordinateOffset(system int, axes [AxisCount]float64) error {
	if system < 1 || system > 6 {
		return fmt.Errorf("nvs: coordinate system %d out of range", system)
	}
	s.CoordSystems[system-1] = axes
	return nil
}

// RestoreDefaults implements "$RST=$": settings reset, coordinate data
// and startup lines untouched.
func (s *Store) RestoreDefaults() {
	s.Settings = defaultSettings()
}

// ClearParameters implements "$RST=#": coordinate systems, G28/G30,
// and tool length offset reset; settings untouched.
func (s *Store) ClearParameters() {
	s.CoordSystems = [6][AxisCount]float64{}
	s.G28 = [AxisCount]float64{}
	s.G30 = [AxisCount]float64{}
	s.ToolLength = 0
}

// WipeAll implements "$RST=*": the entire image reverts to defaults.
func (s *Store) WipeAll() {
	*s = *Default()
}
