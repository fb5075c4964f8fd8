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

func maxShift(shifts []int) (int, error) {
	largest := 0
	for _, s := range shifts {
		if s < 0 {
			return 0, fmt.Errorf("%w: negative shift in %v", ErrGeometry, shifts)
		}
		if s > largest {
			largest = s
		}
	}
	return largest, nil
}

func shiftedHeight(height, shift int) int {
	if height < shift {
		return 0
	}
	return height - shift
}

// ComponentShiftLines compensates for color sensor rows which are
// physically offset: channel c of output row i is taken from input row
// i+shift[c].
type ComponentShiftLines struct {
	source  Node
	shifts  [3]int // indexed by logical channel
	largest int
	rows    *rowRing
}

func NewComponentShiftLines(source Node, shiftR, shiftG, shiftB int) (*ComponentShiftLines, error) {
	if got := source.Format().Channels(); got != 3 {
		return nil, fmt.Errorf("%w: component shift needs three channels, got %v", ErrGeometry, source.Format())
	}
	shifts := [3]int{shiftR, shiftG, shiftB}
	largest, err := maxShift(shifts[:])
	if err != nil {
		return nil, err
	}
	return &ComponentShiftLines{
		source:  source,
		shifts:  shifts,
		largest: largest,
		rows:    newRowRing(nodeRowBytes(source), largest+1),
	}, nil
}

func (n *ComponentShiftLines) Source() Node        { return n.source }
func (n *ComponentShiftLines) Width() int          { return n.source.Width() }
func (n *ComponentShiftLines) Height() int         { return shiftedHeight(n.source.Height(), n.largest) }
func (n *ComponentShiftLines) Format() PixelFormat { return n.source.Format() }

func (n *ComponentShiftLines) GetNextRowData(out []byte) error {
	if err := n.rows.fill(n.source, n.largest+1); err != nil {
		return err
	}
	format := n.Format()
	for c := 0; c < 3; c++ {
		row := n.rows.row(n.shifts[c])
		ch := storageIndex(format, c)
		for x := 0; x < n.Width(); x++ {
			setChannel(out, x, ch, format, channelAt(row, x, ch, format))
		}
	}
	n.rows.popFront()
	return nil
}

// PixelShiftLines compensates for staggered sensors: pixel x of output row i
// is taken, with all its channels, from input row i+shifts[x%len(shifts)].
type PixelShiftLines struct {
	source  Node
	shifts  []int
	largest int
	rows    *rowRing
}

func NewPixelShiftLines(source Node, shifts []int) (*PixelShiftLines, error) {
	if len(shifts) == 0 {
		return nil, fmt.Errorf("%w: pixel shift without shifts", ErrGeometry)
	}
	largest, err := maxShift(shifts)
	if err != nil {
		return nil, err
	}
	return &PixelShiftLines{
		source:  source,
		shifts:  append([]int(nil), shifts...),
		largest: largest,
		rows:    newRowRing(nodeRowBytes(source), largest+1),
	}, nil
}

func (n *PixelShiftLines) Source() Node        { return n.source }
func (n *PixelShiftLines) Width() int          { return n.source.Width() }
func (n *PixelShiftLines) Height() int         { return shiftedHeight(n.source.Height(), n.largest) }
func (n *PixelShiftLines) Format() PixelFormat { return n.source.Format() }

func (n *PixelShiftLines) GetNextRowData(out []byte) error {
	if err := n.rows.fill(n.source, n.largest+1); err != nil {
		return err
	}
	format := n.Format()
	for x := 0; x < n.Width(); x++ {
		copyPixel(out, x, n.rows.row(n.shifts[x%len(n.shifts)]), x, format)
	}
	n.rows.popFront()
	return nil
}

// PixelShiftColumns compensates for horizontally staggered sensors: output
// pixel x is input pixel x+shifts[x%len(shifts)]. The output is narrower
// than the input by the largest shift.
type PixelShiftColumns struct {
	source  Node
	shifts  []int
	largest int
	buf     []byte
}

func NewPixelShiftColumns(source Node, shifts []int) (*PixelShiftColumns, error) {
	if len(shifts) == 0 {
		return nil, fmt.Errorf("%w: column shift without shifts", ErrGeometry)
	}
	largest, err := maxShift(shifts)
	if err != nil {
		return nil, err
	}
	if largest >= source.Width() {
		return nil, fmt.Errorf("%w: column shift %d exceeds width %d", ErrGeometry, largest, source.Width())
	}
	return &PixelShiftColumns{
		source:  source,
		shifts:  append([]int(nil), shifts...),
		largest: largest,
		buf:     make([]byte, nodeRowBytes(source)),
	}, nil
}

func (n *PixelShiftColumns) Source() Node        { return n.source }
func (n *PixelShiftColumns) Width() int          { return n.source.Width() - n.largest }
func (n *PixelShiftColumns) Height() int         { return n.source.Height() }
func (n *PixelShiftColumns) Format() PixelFormat { return n.source.Format() }

func (n *PixelShiftColumns) GetNextRowData(out []byte) error {
	if err := n.source.GetNextRowData(n.buf); err != nil {
		return err
	}
	format := n.Format()
	for x := 0; x < n.Width(); x++ {
		copyPixel(out, x, n.buf, x+n.shifts[x%len(n.shifts)], format)
	}
	return nil
}
