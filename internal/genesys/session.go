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

package genesys

import (
	"errors"
	"fmt"

	"github.com/stapelberg/scanpipe/internal/imagepipeline"
)

// ErrInvalidSession is returned for sessions whose parameters do not
// describe a consistent transfer.
var ErrInvalidSession = errors.New("invalid scan session")

// Session holds the geometry of one scan as determined by calibration: what
// the sensor delivers and how it needs to be rearranged.
//
// Zero values of the optional fields select the trivial setting (one
// segment, no interleaving, no shifts).
type Session struct {
	// OutputPixels and OutputLines are the size of the final image.
	OutputPixels int
	OutputLines  int

	// Channels (1 or 3) and Depth (8 or 16) describe the sensor data.
	// ColorOrder is the channel order of raw color pixels, or the order of
	// the passes with MonoPasses.
	Channels   int
	Depth      int
	ColorOrder imagepipeline.ColorOrder

	// OutputFormat is the format of the final image. Unknown selects
	// Channels and Depth in RGB order.
	OutputFormat imagepipeline.PixelFormat

	// SegmentCount sensor segments each deliver SegmentPixelGroups groups
	// of PixelGroupSize pixels. Physical chunk p holds logical segment
	// SegmentOrder[p]. The segments of one row are spread over
	// InterleavedLines raw lines.
	SegmentCount       int
	SegmentOrder       []int
	SegmentPixelGroups int
	PixelGroupSize     int
	InterleavedLines   int

	// DeinterleaveLines raw lines carry the alternating pixels of one line.
	DeinterleaveLines int

	// MonoPasses is set when the sensor delivers a color line as three
	// consecutive single-channel lines.
	MonoPasses bool

	// ShiftR, ShiftG and ShiftB are the line distances of the color
	// channels.
	ShiftR, ShiftG, ShiftB int

	// StaggerShifts are the line distances of alternating pixel groups.
	StaggerShifts []int

	// ColumnShifts are the horizontal distances of alternating pixels.
	ColumnShifts []int

	SwapBytes bool
	Invert    bool

	// ChunkSize is the number of bytes the pipeline requests at a time.
	ChunkSize int

	// BufferSteps is the bulk read model. Nil reads ChunkSize bytes at a
	// time.
	BufferSteps []BufferStep

	// CropStart is the first column of the final image.
	CropStart int
}

func largestShift(shifts ...int) int {
	largest := 0
	for _, s := range shifts {
		if s > largest {
			largest = s
		}
	}
	return largest
}

// normalized returns a copy of s with defaults filled in.
func (s Session) normalized() Session {
	if s.SegmentCount <= 0 {
		s.SegmentCount = 1
	}
	if s.PixelGroupSize <= 0 {
		s.PixelGroupSize = 1
	}
	if s.InterleavedLines <= 0 {
		s.InterleavedLines = 1
	}
	if s.DeinterleaveLines <= 0 {
		s.DeinterleaveLines = 1
	}
	if s.SegmentOrder == nil {
		s.SegmentOrder = make([]int, s.SegmentCount)
		for i := range s.SegmentOrder {
			s.SegmentOrder[i] = i
		}
	}
	if s.SegmentPixelGroups <= 0 {
		s.SegmentPixelGroups = s.rowPixels() / (s.SegmentCount * s.PixelGroupSize)
	}
	if s.OutputFormat == imagepipeline.Unknown {
		s.OutputFormat, _ = imagepipeline.PixelFormatFor(s.Channels, s.Depth, imagepipeline.OrderRGB)
	}
	if s.BufferSteps == nil {
		s.BufferSteps = []BufferStep{{Size: s.ChunkSize, Count: 1}}
	}
	return s
}

// shiftedPixels is the width of a line before column shifting.
func (s Session) shiftedPixels() int {
	return s.CropStart + s.OutputPixels + largestShift(s.ColumnShifts...)
}

// rowPixels is the width of a desegmented raw line.
func (s Session) rowPixels() int {
	n := s.DeinterleaveLines
	if n <= 0 {
		n = 1
	}
	return s.shiftedPixels() / n
}

func (s Session) desegments() bool {
	return s.SegmentCount > 1 || s.InterleavedLines > 1
}

func (s Session) rawChannels() int {
	if s.MonoPasses {
		return 1
	}
	return s.Channels
}

// RawFormat returns the pixel format of the data the sensor delivers.
func (s Session) RawFormat() (imagepipeline.PixelFormat, error) {
	return imagepipeline.PixelFormatFor(s.rawChannels(), s.Depth, s.ColorOrder)
}

// RawPixels returns the width of one line of the transfer.
func (s Session) RawPixels() int {
	n := s.normalized()
	if !n.desegments() {
		return n.rowPixels()
	}
	segmentPixels := n.SegmentCount * n.SegmentPixelGroups * n.PixelGroupSize
	return (segmentPixels + n.InterleavedLines - 1) / n.InterleavedLines
}

// RawRowBytes returns the size of one line of the transfer.
func (s Session) RawRowBytes() int {
	format, err := s.RawFormat()
	if err != nil {
		return 0
	}
	return imagepipeline.RowBytes(format, s.RawPixels())
}

// RawLines returns the number of lines of the transfer.
func (s Session) RawLines() int {
	n := s.normalized()
	lines := n.OutputLines + largestShift(n.StaggerShifts...)
	if n.Channels == 3 {
		lines += largestShift(n.ShiftR, n.ShiftG, n.ShiftB)
	}
	if n.MonoPasses {
		lines *= 3
	}
	return lines * n.DeinterleaveLines * n.InterleavedLines
}

// TotalBytes returns the size of the transfer.
func (s Session) TotalBytes() int {
	return s.RawRowBytes() * s.RawLines()
}

func (s Session) invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSession, fmt.Sprintf(format, args...))
}

// Validate returns an error if s does not describe a transfer the pipeline
// can reconstruct.
func (s Session) Validate() error {
	if s.OutputPixels <= 0 || s.OutputLines <= 0 {
		return s.invalid("output size %dx%d", s.OutputPixels, s.OutputLines)
	}
	if s.Channels != 1 && s.Channels != 3 {
		return s.invalid("%d channels", s.Channels)
	}
	if s.Depth != 8 && s.Depth != 16 {
		return s.invalid("depth %d", s.Depth)
	}
	if s.ColorOrder != imagepipeline.OrderRGB && s.ColorOrder != imagepipeline.OrderBGR {
		return s.invalid("color order %v", s.ColorOrder)
	}
	if s.MonoPasses && s.Channels != 3 {
		return s.invalid("mono passes need 3 channels, have %d", s.Channels)
	}
	if s.Channels == 1 && (s.ShiftR != 0 || s.ShiftG != 0 || s.ShiftB != 0) {
		return s.invalid("color shifts on a single channel")
	}
	for _, shifts := range [][]int{{s.ShiftR, s.ShiftG, s.ShiftB}, s.StaggerShifts, s.ColumnShifts} {
		for _, shift := range shifts {
			if shift < 0 {
				return s.invalid("negative shift in %v", shifts)
			}
		}
	}
	if s.CropStart < 0 {
		return s.invalid("crop start %d", s.CropStart)
	}
	if s.ChunkSize <= 0 {
		return s.invalid("chunk size %d", s.ChunkSize)
	}
	n := s.normalized()
	if !n.OutputFormat.Valid() {
		return s.invalid("output format %v", n.OutputFormat)
	}
	if got := len(n.SegmentOrder); got != n.SegmentCount {
		return s.invalid("segment order %v for %d segments", n.SegmentOrder, n.SegmentCount)
	}
	if n.shiftedPixels()%n.DeinterleaveLines != 0 {
		return s.invalid("line of %d pixels cannot be split over %d lines", n.shiftedPixels(), n.DeinterleaveLines)
	}
	if n.desegments() {
		group := n.SegmentCount * n.PixelGroupSize
		if n.rowPixels()%group != 0 {
			return s.invalid("line of %d pixels is not a multiple of %d segments * %d pixels",
				n.rowPixels(), n.SegmentCount, n.PixelGroupSize)
		}
		if need := n.rowPixels() / group; n.SegmentPixelGroups < need {
			return s.invalid("%d pixel groups per segment, need %d", n.SegmentPixelGroups, need)
		}
	}
	if _, err := NewBufferModel(n.BufferSteps...); err != nil {
		return s.invalid("%v", err)
	}
	return nil
}
