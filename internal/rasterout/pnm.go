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

package rasterout

import (
	"bufio"
	"fmt"
	"image"
	"io"
)

// encodePNM writes img as binary PGM (P5) or PPM (P6). Samples of 16-bit
// images are written big-endian with a maximum value of 65535.
func encodePNM(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)

	var (
		magic  string
		maxval int
		pixel  func(x, y int, out []byte) []byte
	)
	switch img := img.(type) {
	case *image.Gray:
		magic, maxval = "P5", 255
		pixel = func(x, y int, out []byte) []byte {
			return append(out, img.GrayAt(x, y).Y)
		}
	case *image.Gray16:
		magic, maxval = "P5", 65535
		pixel = func(x, y int, out []byte) []byte {
			v := img.Gray16At(x, y).Y
			return append(out, byte(v>>8), byte(v))
		}
	case *image.RGBA64:
		magic, maxval = "P6", 65535
		pixel = func(x, y int, out []byte) []byte {
			c := img.RGBA64At(x, y)
			return append(out,
				byte(c.R>>8), byte(c.R),
				byte(c.G>>8), byte(c.G),
				byte(c.B>>8), byte(c.B))
		}
	default:
		magic, maxval = "P6", 255
		pixel = func(x, y int, out []byte) []byte {
			r, g, b, _ := img.At(x, y).RGBA()
			return append(out, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n%d\n", magic, b.Dx(), b.Dy(), maxval); err != nil {
		return err
	}
	var row []byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row = row[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			row = pixel(x, y, row)
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
