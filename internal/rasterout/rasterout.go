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

// Package rasterout writes reconstructed scans to image files.
package rasterout

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/renameio"
	"github.com/stapelberg/scanpipe/internal/imagepipeline"
	"golang.org/x/image/tiff"
)

// Format is an output file format.
type Format int

const (
	PNG Format = iota
	TIFF
	PNM
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case TIFF:
		return "tiff"
	case PNM:
		return "pnm"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFor picks the format by the file name extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".tif", ".tiff":
		return TIFF, nil
	case ".pnm", ".pgm", ".ppm":
		return PNM, nil
	}
	return 0, fmt.Errorf("unsupported output file extension %q", filepath.Ext(path))
}

type Options struct {
	// Rotate180 turns the image upside down, for scanners which feed
	// documents top edge last.
	Rotate180 bool

	// Deflate compresses TIFF output.
	Deflate bool
}

// rotate180 turns img upside down, keeping its color model and depth.
// imaging.Rotate180 always returns 8-bit NRGBA.
func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	switch img := img.(type) {
	case *image.Gray:
		res := image.NewGray(b)
		draw.Draw(res, b, imaging.Rotate180(img), image.Point{}, draw.Src)
		return res
	case *image.Gray16:
		res := image.NewGray16(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				res.SetGray16(b.Max.X-1-x+b.Min.X, b.Max.Y-1-y+b.Min.Y, img.Gray16At(x, y))
			}
		}
		return res
	case *image.RGBA64:
		res := image.NewRGBA64(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				res.SetRGBA64(b.Max.X-1-x+b.Min.X, b.Max.Y-1-y+b.Min.Y, img.RGBA64At(x, y))
			}
		}
		return res
	}
	return imaging.Rotate180(img)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, format Format, img *imagepipeline.Image, opts Options) error {
	std := img.ToStd()
	if std == nil {
		return fmt.Errorf("cannot encode pixel format %v", img.Format)
	}
	if opts.Rotate180 {
		std = rotate180(std)
	}
	switch format {
	case PNG:
		return png.Encode(w, std)
	case TIFF:
		var to tiff.Options
		if opts.Deflate {
			to.Compression = tiff.Deflate
		}
		return tiff.Encode(w, std, &to)
	case PNM:
		return encodePNM(w, std)
	}
	return fmt.Errorf("unknown format %v", format)
}

// Write atomically replaces the file at path with img, encoded in the format
// the file name extension of path selects.
func Write(path string, img *imagepipeline.Image, opts Options) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	o, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return err
	}
	defer o.Cleanup()
	bw := bufio.NewWriter(o)
	if err := Encode(bw, format, img, opts); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := o.Chmod(0644); err != nil {
		return err
	}
	return o.CloseAtomicallyReplace()
}
