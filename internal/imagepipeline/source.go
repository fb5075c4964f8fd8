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

// ArraySource produces rows from a buffer holding a whole image.
type ArraySource struct {
	width  int
	height int
	format PixelFormat

	data []byte
	next int // offset of the next row within data
}

// NewArraySource returns a source which produces the height rows stored in
// data, which must be exactly height rows long.
func NewArraySource(width, height int, format PixelFormat, data []byte) (*ArraySource, error) {
	if !format.Valid() || width <= 0 || height < 0 {
		return nil, fmt.Errorf("%w: array source %dx%d %v", ErrGeometry, width, height, format)
	}
	if got, want := len(data), height*RowBytes(format, width); got != want {
		return nil, fmt.Errorf("%w: array source holds %d bytes, want %d", ErrGeometry, got, want)
	}
	return &ArraySource{
		width:  width,
		height: height,
		format: format,
		data:   data,
	}, nil
}

func (s *ArraySource) Width() int          { return s.width }
func (s *ArraySource) Height() int         { return s.height }
func (s *ArraySource) Format() PixelFormat { return s.format }

func (s *ArraySource) GetNextRowData(out []byte) error {
	rowBytes := RowBytes(s.format, s.width)
	if s.next+rowBytes > len(s.data) {
		return ErrNoData
	}
	copy(out[:rowBytes], s.data[s.next:])
	s.next += rowBytes
	return nil
}

// ProducerFunc fills all of p with the next bytes of a transfer.
type ProducerFunc func(p []byte) error

// CallableSource calls its producer once per row.
type CallableSource struct {
	width  int
	height int
	format PixelFormat

	producer ProducerFunc
	buf      []byte
	rows     int // rows produced so far
}

func NewCallableSource(width, height int, format PixelFormat, producer ProducerFunc) (*CallableSource, error) {
	if !format.Valid() || width <= 0 || height < 0 {
		return nil, fmt.Errorf("%w: callable source %dx%d %v", ErrGeometry, width, height, format)
	}
	return &CallableSource{
		width:    width,
		height:   height,
		format:   format,
		producer: producer,
		buf:      make([]byte, RowBytes(format, width)),
	}, nil
}

func (s *CallableSource) Width() int          { return s.width }
func (s *CallableSource) Height() int         { return s.height }
func (s *CallableSource) Format() PixelFormat { return s.format }

func (s *CallableSource) GetNextRowData(out []byte) error {
	if s.rows >= s.height {
		return ErrNoData
	}
	if err := s.producer(s.buf); err != nil {
		return fmt.Errorf("producing row %d: %w", s.rows, err)
	}
	copy(out, s.buf)
	s.rows++
	return nil
}

// BufferedCallableSource reassembles rows from chunks of a fixed size, as
// delivered by bulk transfers whose size is unrelated to the row size.
type BufferedCallableSource struct {
	width  int
	height int
	format PixelFormat

	producer  ProducerFunc
	chunkSize int

	buf   []byte
	start int // first unconsumed byte in buf
	end   int // end of valid data in buf

	remaining int // bytes the producer is still expected to deliver
}

// NewBufferedCallableSource returns a source which calls producer with
// chunkSize bytes at a time until a full row is available. The producer is
// asked for at most height rows worth of bytes in total; the last chunk is
// shortened accordingly.
func NewBufferedCallableSource(width, height int, format PixelFormat, chunkSize int, producer ProducerFunc) (*BufferedCallableSource, error) {
	if !format.Valid() || width <= 0 || height < 0 {
		return nil, fmt.Errorf("%w: buffered source %dx%d %v", ErrGeometry, width, height, format)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrGeometry, chunkSize)
	}
	rowBytes := RowBytes(format, width)
	return &BufferedCallableSource{
		width:     width,
		height:    height,
		format:    format,
		producer:  producer,
		chunkSize: chunkSize,
		buf:       make([]byte, rowBytes+chunkSize),
		remaining: height * rowBytes,
	}, nil
}

func (s *BufferedCallableSource) Width() int          { return s.width }
func (s *BufferedCallableSource) Height() int         { return s.height }
func (s *BufferedCallableSource) Format() PixelFormat { return s.format }

// RemainingBytes returns how many bytes the producer is still expected to
// deliver.
func (s *BufferedCallableSource) RemainingBytes() int { return s.remaining }

// SetRemainingBytes lowers the number of bytes the producer is still
// expected to deliver, e.g. once a sheet-fed scanner detected the end of
// the document. The value never grows.
func (s *BufferedCallableSource) SetRemainingBytes(n int) {
	if n < 0 {
		n = 0
	}
	if n < s.remaining {
		s.remaining = n
	}
}

func (s *BufferedCallableSource) GetNextRowData(out []byte) error {
	rowBytes := RowBytes(s.format, s.width)
	for s.end-s.start < rowBytes {
		if s.remaining == 0 {
			return ErrNoData
		}
		if s.start > 0 {
			s.end = copy(s.buf, s.buf[s.start:s.end])
			s.start = 0
		}
		n := s.chunkSize
		if n > s.remaining {
			n = s.remaining
		}
		if err := s.producer(s.buf[s.end : s.end+n]); err != nil {
			return fmt.Errorf("reading chunk of %d bytes: %w", n, err)
		}
		s.end += n
		s.remaining -= n
	}
	copy(out[:rowBytes], s.buf[s.start:])
	s.start += rowBytes
	return nil
}
