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

// MergeMonoLines combines three consecutive single-channel rows, captured as
// separate single-color passes, into one color row. The passes arrive in the
// given color order: with OrderBGR, the first pass is blue.
type MergeMonoLines struct {
	source Node
	format PixelFormat
	rows   *rowRing
}

func NewMergeMonoLines(source Node, order ColorOrder) (*MergeMonoLines, error) {
	in := source.Format()
	if in.Channels() != 1 {
		return nil, fmt.Errorf("%w: merging mono lines needs a single channel, got %v", ErrGeometry, in)
	}
	if source.Height()%3 != 0 {
		return nil, fmt.Errorf("%w: height %d is not a multiple of 3", ErrGeometry, source.Height())
	}
	format, err := PixelFormatFor(3, in.Depth(), order)
	if err != nil {
		return nil, err
	}
	return &MergeMonoLines{
		source: source,
		format: format,
		rows:   newRowRing(nodeRowBytes(source), 3),
	}, nil
}

func (n *MergeMonoLines) Source() Node        { return n.source }
func (n *MergeMonoLines) Width() int          { return n.source.Width() }
func (n *MergeMonoLines) Height() int         { return n.source.Height() / 3 }
func (n *MergeMonoLines) Format() PixelFormat { return n.format }

func (n *MergeMonoLines) GetNextRowData(out []byte) error {
	if err := n.rows.fill(n.source, 3); err != nil {
		return err
	}
	in := n.source.Format()
	for pass := 0; pass < 3; pass++ {
		row := n.rows.row(pass)
		for x := 0; x < n.Width(); x++ {
			setChannel(out, x, pass, n.format, channelAt(row, x, 0, in))
		}
	}
	for n.rows.len() > 0 {
		n.rows.popFront()
	}
	return nil
}

// SplitMonoLines is the inverse of MergeMonoLines: every color row becomes
// three single-channel rows, one per channel in the color order of the
// source format.
type SplitMonoLines struct {
	source Node
	format PixelFormat
	buf    []byte
	next   int // channel of the next output row, 0 when buf is stale
}

func NewSplitMonoLines(source Node) (*SplitMonoLines, error) {
	in := source.Format()
	if in.Channels() != 3 {
		return nil, fmt.Errorf("%w: splitting mono lines needs three channels, got %v", ErrGeometry, in)
	}
	format, err := PixelFormatFor(1, in.Depth(), OrderRGB)
	if err != nil {
		return nil, err
	}
	return &SplitMonoLines{
		source: source,
		format: format,
		buf:    make([]byte, nodeRowBytes(source)),
	}, nil
}

func (n *SplitMonoLines) Source() Node        { return n.source }
func (n *SplitMonoLines) Width() int          { return n.source.Width() }
func (n *SplitMonoLines) Height() int         { return n.source.Height() * 3 }
func (n *SplitMonoLines) Format() PixelFormat { return n.format }

func (n *SplitMonoLines) GetNextRowData(out []byte) error {
	if n.next == 0 {
		if err := n.source.GetNextRowData(n.buf); err != nil {
			return err
		}
	}
	in := n.source.Format()
	for x := 0; x < n.Width(); x++ {
		setChannel(out, x, 0, n.format, channelAt(n.buf, x, n.next, in))
	}
	n.next = (n.next + 1) % 3
	return nil
}
