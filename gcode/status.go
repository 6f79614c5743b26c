package gcode

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


// Status is the numeric status code returned per line, per spec.md §7.
// Zero value OK means the line was accepted.
type Status int

const (
	OK Status = iota

	// Parse errors — bad letter, bad number, repeated word, negative
	// value, unused words. Parser state is left unchanged.
	ErrExpectedCommandLetter
	ErrBadNumberFormat
	ErrWordRepeated
	ErrNegativeValue
	ErrUnusedWords
	ErrCommandValueNotInteger

	// Semantic errors.
	ErrModalGroupViolation
	ErrUnsupportedCommand
	ErrGcodeAxisCommandConflict
	ErrGcodeValueWordMissing
	ErrInvalidTarget
	ErrArcRadiusError
	ErrInvalidJogCommand
	ErrGcodeCoordSystemRange

	// System errors.
	ErrEEPROMReadFail
	ErrSettingDisabled
	ErrHomingNotEnabled
	ErrStatementOverflow
	ErrInvalidStatement

	// Alarms (cause the executor to enter Alarm state; not returned
	// as ordinary line statuses but share the taxonomy per §7).
	AlarmHardLimit
	AlarmSoftLimit
	AlarmAbortCycle
	AlarmProbeFail
	AlarmHomingFail
)

var statusText = map[Status]string{
	OK:                          "ok",
	ErrExpectedCommandLetter:    "expected command letter",
	ErrBadNumberFormat:          "bad number format",
	ErrWordRepeated:             "word repeated",
	ErrNegativeValue:            "negative value",
	ErrUnusedWords:              "unused words",
	ErrCommandValueNotInteger:   "command value not integer",
	ErrModalGroupViolation:      "modal group violation",
	ErrUnsupportedCommand:       "unsupported command",
	ErrGcodeAxisCommandConflict: "axis command conflict",
	ErrGcodeValueWordMissing:    "value word missing",
	ErrInvalidTarget:            "invalid target",
	ErrArcRadiusError:           "arc radius error",
	ErrInvalidJogCommand:        "invalid jog command",
	ErrGcodeCoordSystemRange:    "coordinate system out of range",
	ErrEEPROMReadFail:           "eeprom read fail",
	ErrSettingDisabled:          "setting disabled",
	ErrHomingNotEnabled:         "homing not enabled",
	ErrStatementOverflow:        "statement overflow",
	ErrInvalidStatement:         "invalid statement",
	AlarmHardLimit:              "hard limit triggered",
	AlarmSoftLimit:              "soft limit",
	AlarmAbortCycle:             "abort during cycle",
	AlarmProbeFail:              "probe fail",
	AlarmHomingFail:             "homing fail",
}

func (s Status) Error() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "unknown status"
}

// IsAlarm reports whether s is one of the alarm-class codes.
func (s Status) IsAlarm() bool {
	return s >= AlarmHardLimit
}
