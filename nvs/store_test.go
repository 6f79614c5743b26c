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
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSettingsRoundTrip(t *testing.T) {
	s := Default()
	for n, want := range map[int]float64{
		SettingStepsPerMMBase + 0: 250,
		SettingJunctionDev:        0.010,
		SettingArcTolerance:       0.002,
	} {
		got, ok := s.Get(n)
		if !ok {
			t.Fatalf("setting %d missing from defaults", n)
		}
		if got != want {
			t.Errorf("setting %d = %v, want %v", n, got, want)
		}
	}
}

// TestSettingWriteReadRoundTrip exercises the invariant from spec.md §8:
// for every writable setting N and valid value V, write(N,V); read(N) == V.
func TestSettingWriteReadRoundTrip(t *testing.T) {
	s := Default()
	for n := 0; n < 135; n++ {
		s.Set(n, float64(n)*1.5)
	}
	for n := 0; n < 135; n++ {
		got, ok := s.Get(n)
		if !ok {
			t.Fatalf("setting %d not found after write", n)
		}
		if got != float64(n)*1.5 {
			t.Errorf("setting %d = %v, want %v", n, got, float64(n)*1.5)
		}
	}
}

func TestCoordinateOffsetRoundTrip(t *testing.T) {
	s := Default()
	want := [AxisCount]float64{1, 2, 3}
	if err := s.SetCoordinateOffset(1, want); err != nil {
		t.Fatalf("SetCoordinateOffset: %v", err)
	}
	got, err := s.CoordinateOffset(1)
	if err != nil {
		t.Fatalf("CoordinateOffset: %v", err)
	}
	if got != want {
		t.Errorf("G54 offset = %v, want %v", got, want)
	}
}

func TestCoordinateOffsetOutOfRange(t *testing.T) {
	s := Default()
	if _, err := s.CoordinateOffset(7); err == nil {
		t.Error("expected error for coordinate system 7")
	}
	if _, err := s.CoordinateOffset(0); err == nil {
		t.Error("expected error for coordinate system 0")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.bin")

	s := Default()
	s.Set(SettingJunctionDev, 0.02)
	if err := s.SetCoordinateOffset(2, [AxisCount]float64{10, 20, 30}); err != nil {
		t.Fatalf("SetCoordinateOffset: %v", err)
	}
	s.StartupLines[0] = "G21G90"
	s.BuildInfo = "test-build"

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, _ := loaded.Get(SettingJunctionDev); v != 0.02 {
		t.Errorf("junction deviation = %v, want 0.02", v)
	}
	offset, err := loaded.CoordinateOffset(2)
	if err != nil || offset != [AxisCount]float64{10, 20, 30} {
		t.Errorf("G55 offset = %v, %v", offset, err)
	}
	if loaded.StartupLines[0] != "G21G90" {
		t.Errorf("startup line 0 = %q", loaded.StartupLines[0])
	}
	if loaded.BuildInfo != "test-build" {
		t.Errorf("build info = %q", loaded.BuildInfo)
	}
}

// TestChecksumMismatchWipes exercises the version-byte/checksum
// wipe-and-restore path: corrupting a saved image must fall back to
// Default() rather than surface a decode error to the caller.
func TestChecksumMismatchWipes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.bin")

	s := Default()
	s.Set(SettingJunctionDev, 0.05)
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF // corrupt checksum byte
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write corrupted: %v", err)
	}

	restored, err := Load(path)
	if err != nil {
		t.Fatalf("Load after corruption: %v", err)
	}
	if v, _ := restored.Get(SettingJunctionDev); v != 0.010 {
		t.Errorf("expected default junction deviation after wipe, got %v", v)
	}
}

func TestRestoreClearWipe(t *testing.T) {
	s := Default()
	s.Set(SettingJunctionDev, 0.05)
	_ = s.SetCoordinateOffset(1, [AxisCount]float64{1, 1, 1})

	s.RestoreDefaults()
	if v, _ := s.Get(SettingJunctionDev); v != 0.010 {
		t.Errorf("RestoreDefaults left junction deviation at %v", v)
	}
	if off, _ := s.CoordinateOffset(1); off == ([AxisCount]float64{}) {
		t.Error("RestoreDefaults must not clear coordinate data")
	}

	s.ClearParameters()
	if off, _ := s.CoordinateOffset(1); off != ([AxisCount]float64{}) {
		t.Errorf("ClearParameters left coordinate data: %v", off)
	}

	s.Set(SettingJunctionDev, 0.09)
	s.WipeAll()
	if v, _ := s.Get(SettingJunctionDev); v != 0.010 {
		t.Errorf("WipeAll left junction deviation at %v", v)
	}
}
