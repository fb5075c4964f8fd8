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
	"encoding/binary"
	"fmt"
	"strings"
)

// ColorOrder is the order in which the channels of a three-channel pixel
// are stored.
type ColorOrder int

const (
	OrderRGB ColorOrder = iota
	OrderBGR
)

func (o ColorOrder) String() string {
	switch o {
	case OrderRGB:
		return "RGB"
	case OrderBGR:
		return "BGR"
	default:
		return fmt.Sprintf("ColorOrder(%d)", int(o))
	}
}

// PixelFormat describes how one pixel of a row is laid out in memory. 16-bit
// channels are stored little-endian.
type PixelFormat int

const (
	Unknown PixelFormat = iota
	I8
	I16
	RGB888
	BGR888
	RGB161616
	BGR161616
)

var formatNames = map[PixelFormat]string{
	Unknown:   "Unknown",
	I8:        "I8",
	I16:       "I16",
	RGB888:    "RGB888",
	BGR888:    "BGR888",
	RGB161616: "RGB161616",
	BGR161616: "BGR161616",
}

func (f PixelFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// Valid reports whether f is one of the known formats.
func (f PixelFormat) Valid() bool {
	return f >= I8 && f <= BGR161616
}

// Channels returns 1 for monochrome formats and 3 for color formats.
func (f PixelFormat) Channels() int {
	switch f {
	case I8, I16:
		return 1
	case RGB888, BGR888, RGB161616, BGR161616:
		return 3
	}
	return 0
}

// BytesPerChannel returns 1 or 2.
func (f PixelFormat) BytesPerChannel() int {
	switch f {
	case I8, RGB888, BGR888:
		return 1
	case I16, RGB161616, BGR161616:
		return 2
	}
	return 0
}

// Depth returns the number of bits per channel.
func (f PixelFormat) Depth() int {
	return 8 * f.BytesPerChannel()
}

// BytesPerPixel returns Channels() * BytesPerChannel().
func (f PixelFormat) BytesPerPixel() int {
	return f.Channels() * f.BytesPerChannel()
}

// Order returns the channel order. Monochrome formats report OrderRGB.
func (f PixelFormat) Order() ColorOrder {
	if f == BGR888 || f == BGR161616 {
		return OrderBGR
	}
	return OrderRGB
}

// PixelFormatFor returns the format with the given number of channels,
// channel depth in bits and channel order. The order is ignored for a single
// channel.
func PixelFormatFor(channels, depth int, order ColorOrder) (PixelFormat, error) {
	switch {
	case channels == 1 && depth == 8:
		return I8, nil
	case channels == 1 && depth == 16:
		return I16, nil
	case channels == 3 && depth == 8 && order == OrderRGB:
		return RGB888, nil
	case channels == 3 && depth == 8 && order == OrderBGR:
		return BGR888, nil
	case channels == 3 && depth == 16 && order == OrderRGB:
		return RGB161616, nil
	case channels == 3 && depth == 16 && order == OrderBGR:
		return BGR161616, nil
	}
	return Unknown, fmt.Errorf("%w: no pixel format with %d channels, depth %d, order %v",
		ErrGeometry, channels, depth, order)
}

// ParsePixelFormat returns the format whose String() equals name, ignoring
// case.
func ParsePixelFormat(name string) (PixelFormat, error) {
	for f, n := range formatNames {
		if f != Unknown && strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return Unknown, fmt.Errorf("unknown pixel format %q", name)
}

// ParseColorOrder parses "rgb" or "bgr", ignoring case.
func ParseColorOrder(name string) (ColorOrder, error) {
	switch strings.ToLower(name) {
	case "rgb":
		return OrderRGB, nil
	case "bgr":
		return OrderBGR, nil
	}
	return 0, fmt.Errorf("unknown color order %q", name)
}

// RowBytes returns the number of bytes in a row of width pixels.
func RowBytes(f PixelFormat, width int) int {
	return width * f.Channels() * f.BytesPerChannel()
}

// channelAt returns the raw value of the channel stored at position ch of
// pixel x. Channels are indexed in storage order, not logical order.
func channelAt(row []byte, x, ch int, f PixelFormat) uint16 {
	if f.BytesPerChannel() == 1 {
		return uint16(row[x*f.Channels()+ch])
	}
	off := 2 * (x*f.Channels() + ch)
	return binary.LittleEndian.Uint16(row[off:])
}

func setChannel(row []byte, x, ch int, f PixelFormat, v uint16) {
	if f.BytesPerChannel() == 1 {
		row[x*f.Channels()+ch] = byte(v)
		return
	}
	off := 2 * (x*f.Channels() + ch)
	binary.LittleEndian.PutUint16(row[off:], v)
}

// storageIndex maps a logical channel (0=R, 1=G, 2=B) to its storage position.
func storageIndex(f PixelFormat, logical int) int {
	if f.Channels() == 1 {
		return 0
	}
	if f.Order() == OrderBGR {
		return 2 - logical
	}
	return logical
}

// copyPixel copies the pixel at position from of src into position to of dst.
// Both rows must share the format f.
func copyPixel(dst []byte, to int, src []byte, from int, f PixelFormat) {
	bpp := f.BytesPerPixel()
	copy(dst[to*bpp:(to+1)*bpp], src[from*bpp:(from+1)*bpp])
}
