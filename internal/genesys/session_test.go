// Copyright 2016 Michael Stapelberg and contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package genesys_test

import (
	"errors"
	"testing"

	"github.com/stapelberg/scanpipe/internal/genesys"
	"github.com/stapelberg/scanpipe/internal/imagepipeline"
)

func TestSessionGeometry(t *testing.T) {
	for _, test := range []struct {
		name        string
		session     genesys.Session
		rawPixels   int
		rawRowBytes int
		rawLines    int
	}{
		{
			name: "plain color",
			session: genesys.Session{
				OutputPixels: 100,
				OutputLines:  10,
				Channels:     3,
				Depth:        8,
				ChunkSize:    64,
			},
			rawPixels:   100,
			rawRowBytes: 300,
			rawLines:    10,
		},
		{
			name: "segmented with color shift",
			session: genesys.Session{
				OutputPixels: 4,
				OutputLines:  2,
				Channels:     3,
				Depth:        8,
				SegmentCount: 2,
				SegmentOrder: []int{1, 0},
				ShiftG:       1,
				ChunkSize:    5,
			},
			rawPixels:   4,
			rawRowBytes: 12,
			rawLines:    3,
		},
		{
			name: "mono passes",
			session: genesys.Session{
				OutputPixels:      8,
				OutputLines:       5,
				Channels:          3,
				Depth:             16,
				MonoPasses:        true,
				DeinterleaveLines: 2,
				ShiftG:            2,
				ShiftB:            4,
				StaggerShifts:     []int{0, 1},
				ChunkSize:         64,
			},
			rawPixels:   4,
			rawRowBytes: 8,
			rawLines:    (5 + 1 + 4) * 3 * 2,
		},
		{
			name: "interleaved segments",
			session: genesys.Session{
				OutputPixels:       12,
				OutputLines:        4,
				Channels:           1,
				Depth:              8,
				SegmentCount:       3,
				SegmentPixelGroups: 3,
				PixelGroupSize:     2,
				InterleavedLines:   2,
				ChunkSize:          64,
			},
			rawPixels:   9,
			rawRowBytes: 9,
			rawLines:    8,
		},
		{
			name: "column shifts and crop",
			session: genesys.Session{
				OutputPixels: 10,
				OutputLines:  1,
				Channels:     1,
				Depth:        16,
				ColumnShifts: []int{0, 2},
				CropStart:    4,
				ChunkSize:    64,
			},
			rawPixels:   16,
			rawRowBytes: 32,
			rawLines:    1,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := test.session
			if err := s.Validate(); err != nil {
				t.Fatal(err)
			}
			if got, want := s.RawPixels(), test.rawPixels; got != want {
				t.Errorf("RawPixels() = %d, want %d", got, want)
			}
			if got, want := s.RawRowBytes(), test.rawRowBytes; got != want {
				t.Errorf("RawRowBytes() = %d, want %d", got, want)
			}
			if got, want := s.RawLines(), test.rawLines; got != want {
				t.Errorf("RawLines() = %d, want %d", got, want)
			}
			if got, want := s.TotalBytes(), test.rawRowBytes*test.rawLines; got != want {
				t.Errorf("TotalBytes() = %d, want %d", got, want)
			}
		})
	}
}

func TestSessionValidate(t *testing.T) {
	valid := genesys.Session{
		OutputPixels: 12,
		OutputLines:  4,
		Channels:     3,
		Depth:        8,
		ChunkSize:    64,
	}
	for _, test := range []struct {
		name   string
		modify func(s *genesys.Session)
	}{
		{"no pixels", func(s *genesys.Session) { s.OutputPixels = 0 }},
		{"no lines", func(s *genesys.Session) { s.OutputLines = 0 }},
		{"two channels", func(s *genesys.Session) { s.Channels = 2 }},
		{"depth 12", func(s *genesys.Session) { s.Depth = 12 }},
		{"color order", func(s *genesys.Session) { s.ColorOrder = 7 }},
		{"output format", func(s *genesys.Session) { s.OutputFormat = 42 }},
		{"mono passes on mono", func(s *genesys.Session) { s.Channels = 1; s.MonoPasses = true }},
		{"color shift on mono", func(s *genesys.Session) { s.Channels = 1; s.ShiftB = 1 }},
		{"negative stagger", func(s *genesys.Session) { s.StaggerShifts = []int{0, -1} }},
		{"negative column shift", func(s *genesys.Session) { s.ColumnShifts = []int{-2} }},
		{"negative crop", func(s *genesys.Session) { s.CropStart = -1 }},
		{"no chunk size", func(s *genesys.Session) { s.ChunkSize = 0 }},
		{"segment order length", func(s *genesys.Session) { s.SegmentCount = 3; s.SegmentOrder = []int{0, 1} }},
		{"deinterleave remainder", func(s *genesys.Session) { s.OutputPixels = 5; s.DeinterleaveLines = 2 }},
		{"segment remainder", func(s *genesys.Session) { s.OutputPixels = 10; s.SegmentCount = 3 }},
		{"too few groups", func(s *genesys.Session) { s.SegmentCount = 3; s.SegmentPixelGroups = 1 }},
		{"buffer steps", func(s *genesys.Session) { s.BufferSteps = []genesys.BufferStep{{Size: 0, Count: 1}} }},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := valid
			test.modify(&s)
			if err := s.Validate(); !errors.Is(err, genesys.ErrInvalidSession) {
				t.Fatalf("Validate() = %v, want ErrInvalidSession", err)
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestSessionRawFormat(t *testing.T) {
	s := genesys.Session{Channels: 3, Depth: 16, ColorOrder: imagepipeline.OrderBGR}
	if got, err := s.RawFormat(); err != nil || got != imagepipeline.BGR161616 {
		t.Errorf("RawFormat() = %v, %v, want BGR161616", got, err)
	}
	s.MonoPasses = true
	if got, err := s.RawFormat(); err != nil || got != imagepipeline.I16 {
		t.Errorf("RawFormat() = %v, %v, want I16", got, err)
	}
}
