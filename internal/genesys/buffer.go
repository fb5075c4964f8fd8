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

// Package genesys implements the image data path of scanners built around
// Genesys Logic USB scanner controllers: the chunked bulk transfer of raw
// sensor data and the pipeline which turns it into an image.
package genesys

import (
	"fmt"

	"github.com/stapelberg/scanpipe/internal/imagepipeline"
)

// blockSize is the granularity of bulk transfers of image data.
const blockSize = 256

func alignDown(n int) int { return n / blockSize * blockSize }

func alignUp(n int) int { return (n + blockSize - 1) / blockSize * blockSize }

// BufferStep is one entry of a BufferModel: Count reads of Size bytes each.
type BufferStep struct {
	Size  int `mapstructure:"size"`
	Count int `mapstructure:"count"`
}

// BufferModel describes the sequence of bulk read sizes used for a
// transfer. The last step repeats indefinitely.
type BufferModel struct {
	steps []BufferStep
}

func NewBufferModel(steps ...BufferStep) (BufferModel, error) {
	if len(steps) == 0 {
		return BufferModel{}, fmt.Errorf("%w: empty buffer model", imagepipeline.ErrGeometry)
	}
	for i, s := range steps {
		if s.Size <= 0 || s.Count <= 0 {
			return BufferModel{}, fmt.Errorf("%w: buffer model step %d: %d reads of %d bytes",
				imagepipeline.ErrGeometry, i, s.Count, s.Size)
		}
	}
	return BufferModel{steps: append([]BufferStep(nil), steps...)}, nil
}

// Steps returns a copy of the steps of m.
func (m BufferModel) Steps() []BufferStep {
	return append([]BufferStep(nil), m.steps...)
}

// modelCursor points at the read within a BufferModel which is issued next.
type modelCursor struct {
	step int
	used int // reads already issued from step
}

func (m BufferModel) size(c modelCursor) int {
	return m.steps[c.step].Size
}

func (m BufferModel) advance(c modelCursor) modelCursor {
	c.used++
	if c.used >= m.steps[c.step].Count && c.step < len(m.steps)-1 {
		c.step++
		c.used = 0
	}
	return c
}

// ImageBuffer hands out image data of a single transfer in arbitrarily sized
// requests, while reading from the device in the sizes a BufferModel
// prescribes.
//
// Physical reads are multiples of blockSize. Read k ends where the first k
// nominal sizes of the model end, rounded down to a block boundary, so the
// rounding error never accumulates. The read which reaches the end of the
// transfer is rounded up instead, and the padding is discarded.
type ImageBuffer struct {
	model    BufferModel
	producer imagepipeline.ProducerFunc

	totalSize int
	remaining int // transfer bytes not yet read from the device

	cursor   modelCursor
	nominal  int // sum of the nominal sizes of all reads so far
	physical int // sum of the physical sizes of all reads so far

	buf   []byte
	start int
	end   int
}

// NewImageBuffer returns a buffer for a transfer of totalSize bytes, which
// producer delivers in the sizes model prescribes.
func NewImageBuffer(totalSize int, model BufferModel, producer imagepipeline.ProducerFunc) (*ImageBuffer, error) {
	if totalSize < 0 {
		return nil, fmt.Errorf("%w: transfer of %d bytes", imagepipeline.ErrGeometry, totalSize)
	}
	if len(model.steps) == 0 {
		return nil, fmt.Errorf("%w: empty buffer model", imagepipeline.ErrGeometry)
	}
	return &ImageBuffer{
		model:     model,
		producer:  producer,
		totalSize: totalSize,
		remaining: totalSize,
	}, nil
}

// TotalSize returns the size of the transfer as planned.
func (b *ImageBuffer) TotalSize() int { return b.totalSize }

// Remaining returns the number of transfer bytes which have not been read
// from the device yet.
func (b *ImageBuffer) Remaining() int { return b.remaining }

// Available returns the number of bytes GetData can still hand out.
func (b *ImageBuffer) Available() int { return b.end - b.start + b.remaining }

// SetRemainingSize shortens the transfer so that at most x more bytes are
// read from the device. It never extends the transfer.
func (b *ImageBuffer) SetRemainingSize(x int) {
	if x < 0 {
		x = 0
	}
	if x < b.remaining {
		b.remaining = x
		usbTruncationsTotal.Inc()
	}
}

// nextReadSize returns the physical size of the next read and how many of
// its bytes belong to the transfer.
func (b *ImageBuffer) nextReadSize() (size, data int) {
	size = alignDown(b.nominal+b.model.size(b.cursor)) - b.physical
	if size < blockSize {
		size = blockSize
	}
	if size >= b.remaining {
		return alignUp(b.remaining), b.remaining
	}
	return size, size
}

// reserve makes room for n more bytes after b.end.
func (b *ImageBuffer) reserve(n int) {
	if b.start > 0 {
		b.end = copy(b.buf, b.buf[b.start:b.end])
		b.start = 0
	}
	if need := b.end + n; need > len(b.buf) {
		buf := make([]byte, need)
		copy(buf, b.buf[:b.end])
		b.buf = buf
	}
}

// GetData fills out[:n] with the next n bytes of the transfer. If fewer than
// n bytes are left, it fails without reading from the device. On error, out
// is left unchanged.
func (b *ImageBuffer) GetData(n int, out []byte) error {
	if n < 0 || n > len(out) {
		return fmt.Errorf("%w: request for %d bytes into a buffer of %d", imagepipeline.ErrGeometry, n, len(out))
	}
	if avail := b.Available(); n > avail {
		return fmt.Errorf("%w: requested %d bytes, only %d left in transfer", imagepipeline.ErrNoData, n, avail)
	}
	for b.end-b.start < n {
		size, data := b.nextReadSize()
		b.reserve(size)
		if err := b.producer(b.buf[b.end : b.end+size]); err != nil {
			usbReadsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("bulk read of %d bytes: %w", size, err)
		}
		usbReadsTotal.WithLabelValues("ok").Inc()
		usbReadBytesTotal.Add(float64(size))
		b.nominal += b.model.size(b.cursor)
		b.cursor = b.model.advance(b.cursor)
		b.physical += size
		b.end += data
		b.remaining -= data
	}
	copy(out[:n], b.buf[b.start:b.start+n])
	b.start += n
	return nil
}

// Producer returns a function which fills its argument from b, for use
// with imagepipeline.NewBufferedCallableSource.
func (b *ImageBuffer) Producer() imagepipeline.ProducerFunc {
	return func(p []byte) error {
		return b.GetData(len(p), p)
	}
}
