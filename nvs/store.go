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
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// record layout: a version byte, a count of settings entries, each
// entry as (int32 number, float64 value), the coordinate/G28/G30/tool
// length block, the two startup lines and the build-info string each
// length-prefixed, followed by one trailing XOR checksum byte over
// everything preceding it. The regions are not checksummed one by one:
// that single byte covers the whole image.

// Load reads a Store from path. A missing file, a version mismatch, or
// a checksum failure all result in a fresh Default() store — the
// "settings-version byte at offset 0; a mismatch triggers a configured
// wipe-and-restore" behaviour from spec.md §6.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	s, err := decode(raw)
	if err != nil {
		return Default(), nil //nolint: this is the documented wipe-and-restore path
	}
	return s, nil
}

// Save serializes the Store to path, overwriting any prior image.
func (s *Store) Save(path string) error {
	buf := encode(s)
	return os.WriteFile(path, buf, 0o600)
}

func encode(s *Store) []byte {
	var buf bytes.Buffer
	buf.WriteByte(CurrentVersion)

	binary.Write(&buf, binary.LittleEndian, int32(len(s.Settings)))
	// Deterministic ordering keeps Save output stable for tests.
	keys := sortedKeys(s.Settings)
	for _, k := range keys {
		binary.Write(&buf, binary.LittleEndian, int32(k))
		binary.Write(&buf, binary.LittleEndian, s.Settings[k])
	}

	for _, cs := range s.CoordSystems {
		for _, v := range cs {
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	for _, v := range s.G28 {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	for _, v := range s.G30 {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	binary.Write(&buf, binary.LittleEndian, s.ToolLength)

	for _, line := range s.StartupLines {
		writeString(&buf, line)
	}
	writeString(&buf, s.BuildInfo)

	data := buf.Bytes()
	checksum := xorChecksum(data)
	return append(data, checksum)
}

func decode(raw []byte) (*Store, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("nvs: image too short")
	}
	body, checksum := raw[:len(raw)-1], raw[len(raw)-1]
	if xorChecksum(body) != checksum {
		return nil, ErrChecksum
	}

	r := bytes.NewReader(body)
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentVersion {
		return nil, fmt.Errorf("nvs: version %d unsupported", version)
	}

	s := &Store{Version: version, Settings: map[int]float64{}}

	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	for i := int32(0); i < count; i++ {
		var key int32
		var val float64
		if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &val); err != nil {
			return nil, err
		}
		s.Settings[int(key)] = val
	}

	for i := range s.CoordSystems {
		for a := range s.CoordSystems[i] {
			if err := binary.Read(r, binary.LittleEndian, &s.CoordSystems[i][a]); err != nil {
				return nil, err
			}
		}
	}
	for a := range s.G28 {
		if err := binary.Read(r, binary.LittleEndian, &s.G28[a]); err != nil {
			return nil, err
		}
	}
	for a := range s.G30 {
		if err := binary.Read(r, binary.LittleEndian, &s.G30[a]); err != nil {
			return nil, err
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &s.ToolLength); err != nil {
		return nil, err
	}

	for i := range s.StartupLines {
		line, err := readString(r)
		if err != nil {
			return nil, err
		}
		s.StartupLines[i] = line
	}
	info, err := readString(r)
	if err != nil {
		return nil, err
	}
	s.BuildInfo = info

	return s, nil
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, int32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil && n > 0 {
		return "", err
	}
	return string(b), nil
}

func xorChecksum(data []byte) byte {
	var c byte
	for _, b := range data {
		c ^= b
	}
	return c
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
