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

// Package imagepipeline turns the raw byte stream of a scanner sensor into
// rows of canonical pixel data.
//
// A pipeline is a chain of nodes. The first node produces rows from a buffer
// or from a device, every further node owns the node before it and pulls
// rows from it on demand. Rows are produced strictly top to bottom, one at a
// time, so a scan of any length can be processed with a few rows of memory.
package imagepipeline

import "errors"

var (
	// ErrGeometry is returned when nodes are chained with incompatible
	// widths, heights or pixel formats.
	ErrGeometry = errors.New("incompatible pipeline geometry")

	// ErrNoData is returned when a node is asked for a row but its
	// source has no more data.
	ErrNoData = errors.New("no more data")
)

// Node is one stage of an image pipeline. The geometry is fixed at
// construction time.
type Node interface {
	Width() int
	Height() int
	Format() PixelFormat

	// GetNextRowData fills out, which must hold at least
	// RowBytes(Format(), Width()) bytes, with the next row. On error, the
	// contents of out are unchanged.
	GetNextRowData(out []byte) error
}

// nodeRowBytes returns the size of one output row of n.
func nodeRowBytes(n Node) int {
	return RowBytes(n.Format(), n.Width())
}

// rowRing is a fixed-capacity FIFO of rows backed by one allocation.
type rowRing struct {
	rowBytes int
	capacity int
	data     []byte
	first    int
	count    int
}

func newRowRing(rowBytes, capacity int) *rowRing {
	return &rowRing{
		rowBytes: rowBytes,
		capacity: capacity,
		data:     make([]byte, rowBytes*capacity),
	}
}

func (r *rowRing) len() int { return r.count }

func (r *rowRing) full() bool { return r.count == r.capacity }

// row returns the i-th oldest row.
func (r *rowRing) row(i int) []byte {
	idx := (r.first + i) % r.capacity
	return r.data[idx*r.rowBytes : (idx+1)*r.rowBytes]
}

// pushBack reserves a slot for a new row and returns it. The caller must
// ensure the ring is not full.
func (r *rowRing) pushBack() []byte {
	if r.full() {
		panic("imagepipeline: rowRing overflow")
	}
	r.count++
	return r.row(r.count - 1)
}

// unpushBack releases the slot most recently reserved by pushBack.
func (r *rowRing) unpushBack() {
	r.count--
}

func (r *rowRing) popFront() {
	r.first = (r.first + 1) % r.capacity
	r.count--
}

// fill pulls rows from src until the ring holds n rows.
func (r *rowRing) fill(src Node, n int) error {
	for r.len() < n {
		slot := r.pushBack()
		if err := src.GetNextRowData(slot); err != nil {
			r.unpushBack()
			return err
		}
	}
	return nil
}
