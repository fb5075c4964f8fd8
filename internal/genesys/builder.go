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

package genesys

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stapelberg/scanpipe/internal/imagepipeline"
	"golang.org/x/net/trace"
)

// Pipeline reconstructs the image of one scan session from the bulk reads
// of a device.
type Pipeline struct {
	ID      uuid.UUID
	Session Session

	stack  imagepipeline.Stack
	source *imagepipeline.BufferedCallableSource
	buffer *ImageBuffer
	raw    *imagepipeline.Debug // nil without WithRawSink
	tr     trace.Trace

	rows      int
	truncated bool
}

// Option customizes BuildPipeline.
type Option func(*buildOptions)

type buildOptions struct {
	rawSink func(*imagepipeline.Image) error
}

// WithRawSink arranges for sink to be called with the raw, unprocessed image
// once all of it went through the pipeline. This is useful for calibration.
func WithRawSink(sink func(*imagepipeline.Image) error) Option {
	return func(o *buildOptions) { o.rawSink = sink }
}

// BuildPipeline validates s and sets up the nodes which turn the transfer
// producer delivers into the final image. The returned pipeline must be
// closed.
func BuildPipeline(ctx context.Context, s Session, producer imagepipeline.ProducerFunc, opts ...Option) (_ *Pipeline, err error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	n := s.normalized()

	p := &Pipeline{
		ID:      uuid.New(),
		Session: n,
	}
	if parent, ok := trace.FromContext(ctx); ok {
		parent.LazyPrintf("building pipeline %s", p.ID)
	}
	p.tr = trace.New("genesys.Pipeline", p.ID.String())
	defer func() {
		if err != nil {
			p.tr.LazyPrintf("error: %v", err)
			p.tr.SetError()
			p.tr.Finish()
		}
	}()

	model, err := NewBufferModel(n.BufferSteps...)
	if err != nil {
		return nil, err
	}
	if p.buffer, err = NewImageBuffer(n.TotalBytes(), model, producer); err != nil {
		return nil, err
	}
	p.tr.LazyPrintf("transfer: %d lines of %d bytes (%d bytes), model %v",
		n.RawLines(), n.RawRowBytes(), n.TotalBytes(), model.Steps())

	rawFormat, err := n.RawFormat()
	if err != nil {
		return nil, err
	}
	p.source, err = imagepipeline.NewBufferedCallableSource(n.RawPixels(), n.RawLines(), rawFormat, n.ChunkSize, p.buffer.Producer())
	if err != nil {
		return nil, err
	}
	if err := p.stack.PushFirstNode(p.source); err != nil {
		return nil, err
	}
	p.traceNode("source", p.source)

	if o.rawSink != nil {
		if err := p.push("raw sink", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			p.raw = imagepipeline.NewDebug(src, o.rawSink)
			return p.raw, nil
		}); err != nil {
			return nil, err
		}
	}

	if n.SwapBytes && n.Depth == 16 {
		if err := p.push("swap bytes", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewSwap16BitEndian(src), nil
		}); err != nil {
			return nil, err
		}
	}

	if n.desegments() {
		if err := p.push("desegment", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewDesegment(src, n.rowPixels(), n.SegmentOrder, n.SegmentPixelGroups, n.PixelGroupSize, n.InterleavedLines)
		}); err != nil {
			return nil, err
		}
	}

	if n.DeinterleaveLines > 1 {
		if err := p.push("deinterleave", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewDeinterleaveLines(src, n.DeinterleaveLines)
		}); err != nil {
			return nil, err
		}
	}

	if n.MonoPasses {
		if err := p.push("merge mono lines", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewMergeMonoLines(src, n.ColorOrder)
		}); err != nil {
			return nil, err
		}
	}

	if n.Channels == 3 && largestShift(n.ShiftR, n.ShiftG, n.ShiftB) > 0 {
		if err := p.push("component shift", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewComponentShiftLines(src, n.ShiftR, n.ShiftG, n.ShiftB)
		}); err != nil {
			return nil, err
		}
	}

	if largestShift(n.StaggerShifts...) > 0 {
		if err := p.push("stagger", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewPixelShiftLines(src, n.StaggerShifts)
		}); err != nil {
			return nil, err
		}
	}

	if largestShift(n.ColumnShifts...) > 0 {
		if err := p.push("column shift", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewPixelShiftColumns(src, n.ColumnShifts)
		}); err != nil {
			return nil, err
		}
	}

	if p.stack.Format() != n.OutputFormat {
		if err := p.push("format", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewFormatConvert(src, n.OutputFormat)
		}); err != nil {
			return nil, err
		}
	}

	if n.Invert {
		if err := p.push("invert", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewInvert(src), nil
		}); err != nil {
			return nil, err
		}
	}

	if n.CropStart > 0 || p.stack.Width() != n.OutputPixels {
		if err := p.push("crop", func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewExtractColumns(src, n.CropStart, n.CropStart+n.OutputPixels)
		}); err != nil {
			return nil, err
		}
	}

	if got, want := p.stack.Height(), n.OutputLines; got != want {
		return nil, fmt.Errorf("%w: pipeline produces %d lines, want %d", ErrInvalidSession, got, want)
	}
	return p, nil
}

func (p *Pipeline) traceNode(name string, n imagepipeline.Node) {
	p.tr.LazyPrintf("%s: %dx%d %v", name, n.Width(), n.Height(), n.Format())
}

func (p *Pipeline) push(name string, build func(src imagepipeline.Node) (imagepipeline.Node, error)) error {
	n, err := p.stack.PushNode(build)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.traceNode(name, n)
	return nil
}

// Close finishes the trace of p.
func (p *Pipeline) Close() error {
	p.tr.LazyPrintf("%d of %d rows produced", p.rows, p.Height())
	p.tr.Finish()
	return nil
}

func (p *Pipeline) Width() int                        { return p.stack.Width() }
func (p *Pipeline) Height() int                       { return p.stack.Height() }
func (p *Pipeline) Format() imagepipeline.PixelFormat { return p.stack.Format() }
func (p *Pipeline) RowBytes() int                     { return p.stack.RowBytes() }

// NodeCount returns the number of nodes the pipeline consists of.
func (p *Pipeline) NodeCount() int { return p.stack.NodeCount() }

// Rows returns the number of rows produced so far.
func (p *Pipeline) Rows() int { return p.rows }

// Truncated reports whether Truncate was called.
func (p *Pipeline) Truncated() bool { return p.truncated }

// Remaining returns the number of transfer bytes not yet read from the
// device.
func (p *Pipeline) Remaining() int { return p.buffer.Remaining() }

// ReadRow fills out with the next row of the image. Once a truncated
// transfer runs out of data, the raw sink receives the rows read so far.
func (p *Pipeline) ReadRow(out []byte) error {
	if err := p.stack.GetNextRowData(out); err != nil {
		if p.truncated && p.raw != nil && errors.Is(err, imagepipeline.ErrNoData) {
			if ferr := p.raw.Flush(); ferr != nil {
				return fmt.Errorf("raw sink: %w", ferr)
			}
		}
		return err
	}
	p.rows++
	pipelineRowsTotal.Inc()
	return nil
}

// Truncate ends the transfer after bytes more bytes, e.g. because a
// sheet-fed scanner detected the end of the document. Rows which can no
// longer be completed are dropped.
func (p *Pipeline) Truncate(bytes int) {
	p.buffer.SetRemainingSize(bytes)
	p.source.SetRemainingBytes(p.buffer.Available())
	p.truncated = true
	p.tr.LazyPrintf("truncated after row %d: %d bytes remaining", p.rows, p.buffer.Remaining())
}

// ReadAll reads the remaining rows. After Truncate, the image ends with the
// last row that could be completed.
func (p *Pipeline) ReadAll(ctx context.Context) (*imagepipeline.Image, error) {
	rowBytes := p.RowBytes()
	img := &imagepipeline.Image{
		Format: p.Format(),
		Width:  p.Width(),
	}
	data := make([]byte, 0, rowBytes*(p.Height()-p.rows))
	row := make([]byte, rowBytes)
	for p.rows < p.Height() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.ReadRow(row); err != nil {
			if p.truncated && errors.Is(err, imagepipeline.ErrNoData) {
				break
			}
			p.tr.LazyPrintf("row %d: %v", p.rows, err)
			p.tr.SetError()
			return nil, fmt.Errorf("row %d of %d: %w", p.rows, p.Height(), err)
		}
		data = append(data, row...)
		img.Height++
	}
	img.Data = data
	return img, nil
}
