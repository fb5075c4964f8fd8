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

package imagepipeline_test

import (
	"errors"
	"image"
	"testing"

	"github.com/stapelberg/scanpipe/internal/imagepipeline"
	"github.com/stretchr/testify/require"
)

func TestStackPushFirstNodeTwice(t *testing.T) {
	s := pipeline(t, 1, imagepipeline.I8, []byte{1})
	src, err := imagepipeline.NewArraySource(1, 1, imagepipeline.I8, []byte{2})
	require.NoError(t, err)
	require.ErrorIs(t, s.PushFirstNode(src), imagepipeline.ErrGeometry)
}

func TestStackPushNodeOnEmptyStack(t *testing.T) {
	var s imagepipeline.Stack
	_, err := s.PushNode(func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewInvert(src), nil
	})
	require.ErrorIs(t, err, imagepipeline.ErrGeometry)
}

func TestStackPushNodeMustConsumeEnd(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.I8, []byte{1, 2})
	other, err := imagepipeline.NewArraySource(2, 1, imagepipeline.I8, []byte{3, 4})
	require.NoError(t, err)
	_, err = s.PushNode(func(imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewInvert(other), nil
	})
	require.ErrorIs(t, err, imagepipeline.ErrGeometry)
	require.Equal(t, 1, s.NodeCount())
}

func TestStackGeometry(t *testing.T) {
	rows := make([][]byte, 6)
	for i := range rows {
		rows[i] = make([]byte, 5*2)
	}
	s := pipeline(t, 5, imagepipeline.I16, rows...)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewMergeMonoLines(src, imagepipeline.OrderRGB)
	})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDeinterleaveLines(src, 2)
	})

	for _, test := range []struct {
		name      string
		got, want interface{}
	}{
		{"InputWidth", s.InputWidth(), 5},
		{"InputHeight", s.InputHeight(), 6},
		{"InputFormat", s.InputFormat(), imagepipeline.I16},
		{"Width", s.Width(), 10},
		{"Height", s.Height(), 1},
		{"Format", s.Format(), imagepipeline.RGB161616},
		{"RowBytes", s.RowBytes(), 60},
		{"NodeCount", s.NodeCount(), 3},
	} {
		if test.got != test.want {
			t.Errorf("%s() = %v, want %v", test.name, test.got, test.want)
		}
	}
}

func TestStackGetNextRowDataShortBuffer(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.RGB888, []byte{1, 2, 3, 4, 5, 6})
	err := s.GetNextRowData(make([]byte, 5))
	require.True(t, errors.Is(err, imagepipeline.ErrGeometry))
}

func TestStackClear(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.I8, []byte{1, 2})
	s.Clear()
	require.Equal(t, 0, s.NodeCount())
	require.Equal(t, imagepipeline.Unknown, s.Format())
	_, err := s.GetAllData()
	require.Error(t, err)
}

func TestStackGetAllDataExhaustedSource(t *testing.T) {
	s := pipeline(t, 1, imagepipeline.I8, []byte{1}, []byte{2})
	row := make([]byte, 1)
	require.NoError(t, s.GetNextRowData(row))
	_, err := s.GetAllData()
	require.ErrorIs(t, err, imagepipeline.ErrNoData)
}

func TestStackGetImage(t *testing.T) {
	for _, test := range []struct {
		format imagepipeline.PixelFormat
		data   []byte
		check  func(t *testing.T, img image.Image)
	}{
		{
			format: imagepipeline.I8,
			data:   []byte{0x10, 0x20},
			check: func(t *testing.T, img image.Image) {
				require.Equal(t, []byte{0x10, 0x20}, img.(*image.Gray).Pix)
			},
		},
		{
			format: imagepipeline.I16,
			data:   []byte{0x34, 0x12, 0x78, 0x56},
			check: func(t *testing.T, img image.Image) {
				require.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, img.(*image.Gray16).Pix)
			},
		},
		{
			format: imagepipeline.BGR888,
			data:   []byte{3, 2, 1, 6, 5, 4},
			check: func(t *testing.T, img image.Image) {
				require.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, img.(*image.RGBA).Pix)
			},
		},
		{
			format: imagepipeline.RGB161616,
			data:   []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0, 0, 0, 0, 0, 0},
			check: func(t *testing.T, img image.Image) {
				require.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0xff, 0xff}, img.(*image.RGBA64).Pix[:8])
			},
		},
	} {
		t.Run(test.format.String(), func(t *testing.T) {
			s := pipeline(t, 2, test.format, test.data)
			img, err := s.GetImage()
			require.NoError(t, err)
			require.Equal(t, 2, img.Width)
			require.Equal(t, 1, img.Height)
			std := img.ToStd()
			require.Equal(t, image.Rect(0, 0, 2, 1), std.Bounds())
			test.check(t, std)
		})
	}
}
