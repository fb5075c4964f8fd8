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

package imagepipeline

import "fmt"

// Desegment reassembles rows captured by a sensor with several segments.
//
// A raw row holds one contiguous chunk per segment. Physical chunk p holds
// logical segment segmentOrder[p]. Each chunk is a run of pixel groups; the
// output row takes group 0 of every logical segment in turn, then group 1,
// and so on. When interleavedLines is larger than one, the chunks of one
// logical row are spread over that many consecutive input rows, which are
// treated as one long raw row.
type Desegment struct {
	source Node

	outputWidth      int
	chunkOf          []int // logical segment -> physical chunk
	groupsPerSegment int
	pixelGroupSize   int
	interleavedLines int

	raw *rowRing
}

func NewDesegment(source Node, outputWidth int, segmentOrder []int, groupsPerSegment, pixelGroupSize, interleavedLines int) (*Desegment, error) {
	segments := len(segmentOrder)
	if segments == 0 || groupsPerSegment <= 0 || pixelGroupSize <= 0 || interleavedLines <= 0 {
		return nil, fmt.Errorf("%w: desegment with %d segments of %d groups of %d pixels over %d lines",
			ErrGeometry, segments, groupsPerSegment, pixelGroupSize, interleavedLines)
	}
	chunkOf := make([]int, segments)
	seen := make([]bool, segments)
	for p, s := range segmentOrder {
		if s < 0 || s >= segments || seen[s] {
			return nil, fmt.Errorf("%w: segment order %v is not a permutation", ErrGeometry, segmentOrder)
		}
		seen[s] = true
		chunkOf[s] = p
	}
	if outputWidth <= 0 || outputWidth%(segments*pixelGroupSize) != 0 {
		return nil, fmt.Errorf("%w: output width %d is not a multiple of %d segments * %d pixels",
			ErrGeometry, outputWidth, segments, pixelGroupSize)
	}
	if groups := outputWidth / (segments * pixelGroupSize); groups > groupsPerSegment {
		return nil, fmt.Errorf("%w: output width %d needs %d groups per segment, have %d",
			ErrGeometry, outputWidth, groups, groupsPerSegment)
	}
	if got, want := interleavedLines*source.Width(), segments*groupsPerSegment*pixelGroupSize; got < want {
		return nil, fmt.Errorf("%w: raw row of %d pixels cannot hold %d segment pixels",
			ErrGeometry, got, want)
	}
	if source.Height()%interleavedLines != 0 {
		return nil, fmt.Errorf("%w: height %d is not a multiple of %d interleaved lines",
			ErrGeometry, source.Height(), interleavedLines)
	}
	return &Desegment{
		source:           source,
		outputWidth:      outputWidth,
		chunkOf:          chunkOf,
		groupsPerSegment: groupsPerSegment,
		pixelGroupSize:   pixelGroupSize,
		interleavedLines: interleavedLines,
		raw:              newRowRing(nodeRowBytes(source), interleavedLines),
	}, nil
}

func (n *Desegment) Source() Node        { return n.source }
func (n *Desegment) Width() int          { return n.outputWidth }
func (n *Desegment) Height() int         { return n.source.Height() / n.interleavedLines }
func (n *Desegment) Format() PixelFormat { return n.source.Format() }

func (n *Desegment) GetNextRowData(out []byte) error {
	// The ring is always drained at the end of a call, so its rows are
	// contiguous and start at the beginning of its backing array.
	if err := n.raw.fill(n.source, n.interleavedLines); err != nil {
		return err
	}
	in := n.raw.data
	format := n.Format()
	segments := len(n.chunkOf)
	chunkPixels := n.groupsPerSegment * n.pixelGroupSize
	groups := n.outputWidth / (segments * n.pixelGroupSize)
	for g := 0; g < groups; g++ {
		for s := 0; s < segments; s++ {
			from := n.chunkOf[s]*chunkPixels + g*n.pixelGroupSize
			to := (g*segments + s) * n.pixelGroupSize
			for i := 0; i < n.pixelGroupSize; i++ {
				copyPixel(out, to+i, in, from+i, format)
			}
		}
	}
	for n.raw.len() > 0 {
		n.raw.popFront()
	}
	return nil
}
