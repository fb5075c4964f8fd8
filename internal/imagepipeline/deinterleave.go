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

// DeinterleaveLines merges lines consecutive rows into one row that is lines
// times as wide. Output pixel k comes from input row k%lines, pixel
// k/lines, which undoes sensors that read alternating pixels into
// alternating lines.
type DeinterleaveLines struct {
	source Node
	lines  int
	rows   *rowRing
}

func NewDeinterleaveLines(source Node, lines int) (*DeinterleaveLines, error) {
	if lines <= 0 {
		return nil, fmt.Errorf("%w: deinterleave over %d lines", ErrGeometry, lines)
	}
	if source.Height()%lines != 0 {
		return nil, fmt.Errorf("%w: height %d is not a multiple of %d lines",
			ErrGeometry, source.Height(), lines)
	}
	return &DeinterleaveLines{
		source: source,
		lines:  lines,
		rows:   newRowRing(nodeRowBytes(source), lines),
	}, nil
}

func (n *DeinterleaveLines) Source() Node        { return n.source }
func (n *DeinterleaveLines) Width() int          { return n.source.Width() * n.lines }
func (n *DeinterleaveLines) Height() int         { return n.source.Height() / n.lines }
func (n *DeinterleaveLines) Format() PixelFormat { return n.source.Format() }

func (n *DeinterleaveLines) GetNextRowData(out []byte) error {
	if err := n.rows.fill(n.source, n.lines); err != nil {
		return err
	}
	format := n.Format()
	width := n.Width()
	for k := 0; k < width; k++ {
		copyPixel(out, k, n.rows.row(k%n.lines), k/n.lines, format)
	}
	for n.rows.len() > 0 {
		n.rows.popFront()
	}
	return nil
}

// Swap16BitEndian swaps the two bytes of every 16-bit sample. Rows with 8-bit
// samples pass through unchanged.
type Swap16BitEndian struct {
	source Node
}

func NewSwap16BitEndian(source Node) *Swap16BitEndian {
	return &Swap16BitEndian{source: source}
}

func (n *Swap16BitEndian) Source() Node        { return n.source }
func (n *Swap16BitEndian) Width() int          { return n.source.Width() }
func (n *Swap16BitEndian) Height() int         { return n.source.Height() }
func (n *Swap16BitEndian) Format() PixelFormat { return n.source.Format() }

func (n *Swap16BitEndian) GetNextRowData(out []byte) error {
	if err := n.source.GetNextRowData(out); err != nil {
		return err
	}
	if n.Format().BytesPerChannel() != 2 {
		return nil
	}
	row := out[:nodeRowBytes(n)]
	for i := 0; i+1 < len(row); i += 2 {
		row[i], row[i+1] = row[i+1], row[i]
	}
	return nil
}
