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

import (
	"image"
)

// Image is a fully reconstructed scan.
type Image struct {
	Format PixelFormat
	Width  int
	Height int
	Data   []byte
}

func (img *Image) RowBytes() int {
	return RowBytes(img.Format, img.Width)
}

// Row returns row y of img.
func (img *Image) Row(y int) []byte {
	rowBytes := img.RowBytes()
	return img.Data[y*rowBytes : (y+1)*rowBytes]
}

// ToStd copies img into an *image.Gray, *image.Gray16, *image.RGBA or
// *image.RGBA64, depending on the pixel format.
func (img *Image) ToStd() image.Image {
	rect := image.Rect(0, 0, img.Width, img.Height)
	switch img.Format {
	case I8:
		res := image.NewGray(rect)
		for y := 0; y < img.Height; y++ {
			copy(res.Pix[y*res.Stride:], img.Row(y))
		}
		return res

	case I16:
		res := image.NewGray16(rect)
		for y := 0; y < img.Height; y++ {
			row := img.Row(y)
			for x := 0; x < img.Width; x++ {
				// image.Gray16 is big-endian
				offset := y*res.Stride + 2*x
				res.Pix[offset+0] = row[2*x+1]
				res.Pix[offset+1] = row[2*x+0]
			}
		}
		return res

	case RGB888, BGR888:
		res := image.NewRGBA(rect)
		for y := 0; y < img.Height; y++ {
			row := img.Row(y)
			for x := 0; x < img.Width; x++ {
				offset := y*res.Stride + 4*x
				for c := 0; c < 3; c++ {
					res.Pix[offset+c] = byte(channelAt(row, x, storageIndex(img.Format, c), img.Format))
				}
				res.Pix[offset+3] = 0xff
			}
		}
		return res

	case RGB161616, BGR161616:
		res := image.NewRGBA64(rect)
		for y := 0; y < img.Height; y++ {
			row := img.Row(y)
			for x := 0; x < img.Width; x++ {
				offset := y*res.Stride + 8*x
				for c := 0; c < 3; c++ {
					v := channelAt(row, x, storageIndex(img.Format, c), img.Format)
					res.Pix[offset+2*c+0] = byte(v >> 8)
					res.Pix[offset+2*c+1] = byte(v)
				}
				res.Pix[offset+6] = 0xff
				res.Pix[offset+7] = 0xff
			}
		}
		return res
	}
	return nil
}

// Debug passes rows through unchanged and hands a copy of the complete image
// to sink once the last row went through.
type Debug struct {
	source  Node
	sink    func(*Image) error
	data    []byte
	rows    int
	flushed bool
}

func NewDebug(source Node, sink func(*Image) error) *Debug {
	return &Debug{
		source: source,
		sink:   sink,
		data:   make([]byte, 0, nodeRowBytes(source)*source.Height()),
	}
}

func (n *Debug) Source() Node        { return n.source }
func (n *Debug) Width() int          { return n.source.Width() }
func (n *Debug) Height() int         { return n.source.Height() }
func (n *Debug) Format() PixelFormat { return n.source.Format() }

func (n *Debug) GetNextRowData(out []byte) error {
	if err := n.source.GetNextRowData(out); err != nil {
		return err
	}
	n.data = append(n.data, out[:nodeRowBytes(n)]...)
	n.rows++
	if n.rows == n.Height() {
		return n.Flush()
	}
	return nil
}

// Flush hands the rows which went through so far to sink, for sources which
// ended before the last row. The sink is called at most once.
func (n *Debug) Flush() error {
	if n.flushed {
		return nil
	}
	n.flushed = true
	return n.sink(&Image{
		Format: n.Format(),
		Width:  n.Width(),
		Height: n.rows,
		Data:   n.data,
	})
}
