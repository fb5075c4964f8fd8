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

// FormatConvert converts rows from the source format into dst. 8-bit
// channels are widened by replicating the byte into both halves, 16-bit
// channels are narrowed by keeping the high byte. Monochrome input is
// replicated into all three color channels; color input converted to
// monochrome keeps the red channel.
type FormatConvert struct {
	source Node
	format PixelFormat
	buf    []byte
}

func NewFormatConvert(source Node, dst PixelFormat) (*FormatConvert, error) {
	if !dst.Valid() {
		return nil, fmt.Errorf("%w: cannot convert to %v", ErrGeometry, dst)
	}
	return &FormatConvert{
		source: source,
		format: dst,
		buf:    make([]byte, nodeRowBytes(source)),
	}, nil
}

func (n *FormatConvert) Source() Node        { return n.source }
func (n *FormatConvert) Width() int          { return n.source.Width() }
func (n *FormatConvert) Height() int         { return n.source.Height() }
func (n *FormatConvert) Format() PixelFormat { return n.format }

func (n *FormatConvert) GetNextRowData(out []byte) error {
	src := n.source.Format()
	if src == n.format {
		return n.source.GetNextRowData(out)
	}
	if err := n.source.GetNextRowData(n.buf); err != nil {
		return err
	}
	convertRow(out, n.format, n.buf, src, n.Width())
	return nil
}

func convertRow(dst []byte, dstFormat PixelFormat, src []byte, srcFormat PixelFormat, width int) {
	for x := 0; x < width; x++ {
		var rgb [3]uint16
		for c := 0; c < 3; c++ {
			v := channelAt(src, x, storageIndex(srcFormat, c), srcFormat)
			if srcFormat.BytesPerChannel() == 1 {
				v |= v << 8
			}
			rgb[c] = v
		}
		for c := 0; c < dstFormat.Channels(); c++ {
			v := rgb[c]
			if dstFormat.BytesPerChannel() == 1 {
				v >>= 8
			}
			setChannel(dst, x, storageIndex(dstFormat, c), dstFormat, v)
		}
	}
}

// Invert complements every bit of every sample.
type Invert struct {
	source Node
}

func NewInvert(source Node) *Invert {
	return &Invert{source: source}
}

func (n *Invert) Source() Node        { return n.source }
func (n *Invert) Width() int          { return n.source.Width() }
func (n *Invert) Height() int         { return n.source.Height() }
func (n *Invert) Format() PixelFormat { return n.source.Format() }

func (n *Invert) GetNextRowData(out []byte) error {
	if err := n.source.GetNextRowData(out); err != nil {
		return err
	}
	row := out[:nodeRowBytes(n)]
	for i := range row {
		row[i] = ^row[i]
	}
	return nil
}

// ExtractColumns crops every row to the pixel columns [start, end).
type ExtractColumns struct {
	source Node
	start  int
	end    int
	buf    []byte
}

func NewExtractColumns(source Node, start, end int) (*ExtractColumns, error) {
	if start < 0 || end <= start || end > source.Width() {
		return nil, fmt.Errorf("%w: columns [%d, %d) outside of width %d",
			ErrGeometry, start, end, source.Width())
	}
	return &ExtractColumns{
		source: source,
		start:  start,
		end:    end,
		buf:    make([]byte, nodeRowBytes(source)),
	}, nil
}

func (n *ExtractColumns) Source() Node        { return n.source }
func (n *ExtractColumns) Width() int          { return n.end - n.start }
func (n *ExtractColumns) Height() int         { return n.source.Height() }
func (n *ExtractColumns) Format() PixelFormat { return n.source.Format() }

func (n *ExtractColumns) GetNextRowData(out []byte) error {
	if err := n.source.GetNextRowData(n.buf); err != nil {
		return err
	}
	bpp := n.Format().BytesPerPixel()
	copy(out[:nodeRowBytes(n)], n.buf[n.start*bpp:n.end*bpp])
	return nil
}
