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

package main

import (
	"context"
	"errors"
	"io"

	"github.com/stapelberg/scanpipe/internal/genesys"
	"github.com/stapelberg/scanpipe/internal/imagepipeline"
	"golang.org/x/sync/errgroup"
)

// reconstruct pulls all rows from p on one goroutine and assembles them on
// another, so that the device is read while rows are being copied. If
// status is non-nil, it is called with progress updates.
func reconstruct(ctx context.Context, p *genesys.Pipeline, status func(format string, args ...interface{})) (*imagepipeline.Image, error) {
	img := &imagepipeline.Image{
		Format: p.Format(),
		Width:  p.Width(),
		Data:   make([]byte, 0, p.RowBytes()*p.Height()),
	}
	rows := make(chan []byte, 16)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(rows)
		for p.Rows() < p.Height() {
			row := make([]byte, p.RowBytes())
			if err := p.ReadRow(row); err != nil {
				if p.Truncated() && errors.Is(err, imagepipeline.ErrNoData) {
					return nil // document ended early
				}
				return err
			}
			select {
			case rows <- row:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	eg.Go(func() error {
		for row := range rows {
			img.Data = append(img.Data, row...)
			img.Height++
			if status != nil && img.Height%256 == 0 {
				status("scanning: line %d of %d", img.Height, p.Height())
			}
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}

// paddedProducer fills its argument from r. Once r is exhausted, the rest is
// zero-filled, which covers the block padding of the final read.
func paddedProducer(r io.Reader) imagepipeline.ProducerFunc {
	return func(p []byte) error {
		n, err := io.ReadFull(r, p)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return nil
	}
}
