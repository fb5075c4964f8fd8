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
	"testing"

	"github.com/stapelberg/scanpipe/internal/imagepipeline"
	"github.com/stretchr/testify/require"
)

// pipeline returns a stack with an array source holding rows.
func pipeline(t *testing.T, width int, format imagepipeline.PixelFormat, rows ...[]byte) *imagepipeline.Stack {
	t.Helper()
	var data []byte
	for _, row := range rows {
		data = append(data, row...)
	}
	src, err := imagepipeline.NewArraySource(width, len(rows), format, data)
	require.NoError(t, err)
	var s imagepipeline.Stack
	require.NoError(t, s.PushFirstNode(src))
	return &s
}

func push(t *testing.T, s *imagepipeline.Stack, build func(src imagepipeline.Node) (imagepipeline.Node, error)) {
	t.Helper()
	_, err := s.PushNode(build)
	require.NoError(t, err)
}

func seq(from, to, step int) []byte {
	var b []byte
	for i := from; i <= to; i += step {
		b = append(b, byte(i))
	}
	return b
}

func TestFormatConvert(t *testing.T) {
	for _, test := range []struct {
		name string
		from imagepipeline.PixelFormat
		in   []byte
		to   imagepipeline.PixelFormat
		want []byte
	}{
		{
			name: "widen mono",
			from: imagepipeline.I8,
			in:   []byte{0x12, 0xff},
			to:   imagepipeline.I16,
			want: []byte{0x12, 0x12, 0xff, 0xff},
		},
		{
			name: "narrow mono",
			from: imagepipeline.I16,
			in:   []byte{0x34, 0x12, 0x00, 0xab},
			to:   imagepipeline.I8,
			want: []byte{0x12, 0xab},
		},
		{
			name: "reorder",
			from: imagepipeline.RGB888,
			in:   []byte{1, 2, 3, 4, 5, 6},
			to:   imagepipeline.BGR888,
			want: []byte{3, 2, 1, 6, 5, 4},
		},
		{
			name: "mono to color",
			from: imagepipeline.I8,
			in:   []byte{7, 8},
			to:   imagepipeline.RGB888,
			want: []byte{7, 7, 7, 8, 8, 8},
		},
		{
			name: "color to mono",
			from: imagepipeline.BGR888,
			in:   []byte{1, 2, 3, 4, 5, 6},
			to:   imagepipeline.I8,
			want: []byte{3, 6},
		},
		{
			name: "widen and reorder",
			from: imagepipeline.BGR888,
			in:   []byte{1, 2, 3, 4, 5, 6},
			to:   imagepipeline.RGB161616,
			want: []byte{3, 3, 2, 2, 1, 1, 6, 6, 5, 5, 4, 4},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := pipeline(t, 2, test.from, test.in)
			push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
				return imagepipeline.NewFormatConvert(src, test.to)
			})
			require.Equal(t, test.to, s.Format())
			got, err := s.GetAllData()
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

func TestDesegment(t *testing.T) {
	var row []byte
	row = append(row, 1, 5, 9, 13, 17)
	row = append(row, 3, 7, 11, 15, 19)
	row = append(row, 2, 6, 10, 14, 18)
	row = append(row, 4, 8, 12, 16, 20)
	s := pipeline(t, 20, imagepipeline.I8, row)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDesegment(src, 20, []int{0, 2, 1, 3}, 5, 1, 1)
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, seq(1, 20, 1), got)
}

func TestDesegmentPermutation(t *testing.T) {
	// Chunk 0 holds logical segment 1, chunk 1 holds logical segment 2 and
	// chunk 2 holds logical segment 0.
	row := []byte{
		2, 5, 8,
		3, 6, 9,
		1, 4, 7,
	}
	s := pipeline(t, 9, imagepipeline.I8, row)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDesegment(src, 9, []int{1, 2, 0}, 3, 1, 1)
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, seq(1, 9, 1), got)
}

func TestDesegmentPixelGroups(t *testing.T) {
	// two segments of two groups of two RGB pixels each
	var row []byte
	for _, px := range []byte{1, 2, 5, 6, 3, 4, 7, 8} {
		row = append(row, px, px+100, px+200)
	}
	s := pipeline(t, 8, imagepipeline.RGB888, row)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDesegment(src, 8, []int{0, 1}, 2, 2, 1)
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	var want []byte
	for px := byte(1); px <= 8; px++ {
		want = append(want, px, px+100, px+200)
	}
	require.Equal(t, want, got)
}

func TestDesegmentInterleavedLines(t *testing.T) {
	s := pipeline(t, 4, imagepipeline.I8,
		[]byte{1, 3, 5, 7},
		[]byte{2, 4, 6, 8},
		[]byte{11, 13, 15, 17},
		[]byte{12, 14, 16, 18})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDesegment(src, 8, []int{0, 1}, 4, 1, 2)
	})
	require.Equal(t, 8, s.Width())
	require.Equal(t, 2, s.Height())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, append(seq(1, 8, 1), seq(11, 18, 1)...), got)
}

func TestDesegmentInvalid(t *testing.T) {
	src, err := imagepipeline.NewArraySource(8, 1, imagepipeline.I8, make([]byte, 8))
	require.NoError(t, err)
	for _, test := range []struct {
		name  string
		order []int
		width int
	}{
		{"not a permutation", []int{0, 0}, 8},
		{"out of range", []int{0, 2}, 8},
		{"width not a multiple", []int{0, 1}, 7},
		{"width too large", []int{0, 1}, 10},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := imagepipeline.NewDesegment(src, test.width, test.order, 4, 1, 1)
			require.ErrorIs(t, err, imagepipeline.ErrGeometry)
		})
	}
}

func TestDeinterleaveLines(t *testing.T) {
	s := pipeline(t, 10, imagepipeline.I8, seq(1, 19, 2), seq(2, 20, 2))
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDeinterleaveLines(src, 2)
	})
	require.Equal(t, 20, s.Width())
	require.Equal(t, 1, s.Height())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, seq(1, 20, 1), got)
}

func TestDeinterleaveLinesRemainder(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.I8, []byte{1, 2}, []byte{3, 4}, []byte{5, 6})
	_, err := s.PushNode(func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDeinterleaveLines(src, 2)
	})
	require.ErrorIs(t, err, imagepipeline.ErrGeometry)
	require.Equal(t, 1, s.NodeCount())
}

func TestSwap16BitEndian(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.I16, []byte{0x01, 0x02, 0x03, 0x04})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewSwap16BitEndian(src), nil
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, got)
}

func TestSwap16BitEndianPassesEightBit(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.RGB888, []byte{1, 2, 3, 4, 5, 6})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewSwap16BitEndian(src), nil
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)
}

func TestMergeMonoLines(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.I8,
		[]byte{1, 4}, // blue pass
		[]byte{2, 5}, // green pass
		[]byte{3, 6}) // red pass
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewMergeMonoLines(src, imagepipeline.OrderBGR)
	})
	require.Equal(t, imagepipeline.BGR888, s.Format())
	require.Equal(t, 1, s.Height())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)
}

func TestMergeMonoLinesPassOrder(t *testing.T) {
	for _, test := range []struct {
		order imagepipeline.ColorOrder
		want  []byte // as RGB888
	}{
		{imagepipeline.OrderRGB, []byte{10, 20, 30}},
		{imagepipeline.OrderBGR, []byte{30, 20, 10}},
	} {
		s := pipeline(t, 1, imagepipeline.I8, []byte{10}, []byte{20}, []byte{30})
		push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewMergeMonoLines(src, test.order)
		})
		push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
			return imagepipeline.NewFormatConvert(src, imagepipeline.RGB888)
		})
		got, err := s.GetAllData()
		require.NoError(t, err)
		if want := test.want; string(got) != string(want) {
			t.Errorf("order %v: got %v, want %v", test.order, got, want)
		}
	}
}

func TestSplitMonoLines(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.BGR888, []byte{3, 2, 1, 6, 5, 4})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewSplitMonoLines(src)
	})
	require.Equal(t, imagepipeline.I8, s.Format())
	require.Equal(t, 3, s.Height())
	got, err := s.GetAllData()
	require.NoError(t, err)
	// blue, green, red
	require.Equal(t, []byte{3, 6, 2, 5, 1, 4}, got)
}

func TestMergeMonoLinesInvalid(t *testing.T) {
	s := pipeline(t, 1, imagepipeline.I8, []byte{1}, []byte{2})
	_, err := s.PushNode(func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewMergeMonoLines(src, imagepipeline.OrderRGB)
	})
	require.ErrorIs(t, err, imagepipeline.ErrGeometry)

	s = pipeline(t, 1, imagepipeline.RGB888, []byte{1, 2, 3}, []byte{1, 2, 3}, []byte{1, 2, 3})
	_, err = s.PushNode(func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewMergeMonoLines(src, imagepipeline.OrderRGB)
	})
	require.ErrorIs(t, err, imagepipeline.ErrGeometry)
}

// rgbRows returns height rows of width RGB pixels, where the red, green and
// blue channel of pixel x in row y are 10*y+x, 100+10*y+x and 200+10*y+x.
func rgbRows(width, height int) [][]byte {
	var rows [][]byte
	for y := 0; y < height; y++ {
		var row []byte
		for x := 0; x < width; x++ {
			v := byte(10*y + x)
			row = append(row, v, 100+v, 200+v)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestComponentShiftLines(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.RGB888, rgbRows(2, 4)...)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewComponentShiftLines(src, 0, 1, 2)
	})
	require.Equal(t, 2, s.Height())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0, 110, 220, 1, 111, 221,
		10, 120, 230, 11, 121, 231,
	}, got)
}

func TestComponentShiftLinesBGR(t *testing.T) {
	// storage order B, G, R; red lags by two lines
	rows := [][]byte{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}
	s := pipeline(t, 1, imagepipeline.BGR888, rows...)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewComponentShiftLines(src, 2, 1, 0)
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 5, 9}, got)
}

func TestPixelShiftLines(t *testing.T) {
	s := pipeline(t, 4, imagepipeline.RGB888, rgbRows(4, 4)...)
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewPixelShiftLines(src, []int{0, 2})
	})
	require.Equal(t, 2, s.Height())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0, 100, 200, 21, 121, 221, 2, 102, 202, 23, 123, 223,
		10, 110, 210, 31, 131, 231, 12, 112, 212, 33, 133, 233,
	}, got)
}

func TestPixelShiftColumns(t *testing.T) {
	s := pipeline(t, 6, imagepipeline.I8, []byte{1, 2, 3, 4, 5, 6})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewPixelShiftColumns(src, []int{0, 1})
	})
	require.Equal(t, 5, s.Width())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 3, 3, 5, 5}, got)
}

func TestShiftLinesTooShort(t *testing.T) {
	s := pipeline(t, 1, imagepipeline.RGB888, []byte{1, 2, 3})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewComponentShiftLines(src, 0, 0, 3)
	})
	require.Equal(t, 0, s.Height())
	row := make([]byte, 3)
	require.ErrorIs(t, s.GetNextRowData(row), imagepipeline.ErrNoData)
}

func TestNegativeShift(t *testing.T) {
	src, err := imagepipeline.NewArraySource(1, 1, imagepipeline.I8, []byte{1})
	require.NoError(t, err)
	_, err = imagepipeline.NewPixelShiftLines(src, []int{0, -1})
	require.True(t, errors.Is(err, imagepipeline.ErrGeometry))
}

func TestExtractColumnsAndInvert(t *testing.T) {
	s := pipeline(t, 4, imagepipeline.I8, []byte{0x00, 0x0f, 0xf0, 0xff})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewExtractColumns(src, 1, 3)
	})
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewInvert(src), nil
	})
	require.Equal(t, 2, s.Width())
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.Equal(t, []byte{0xf0, 0x0f}, got)
}

func TestDebug(t *testing.T) {
	s := pipeline(t, 2, imagepipeline.I8, []byte{1, 2}, []byte{3, 4})
	var captured *imagepipeline.Image
	push(t, s, func(src imagepipeline.Node) (imagepipeline.Node, error) {
		return imagepipeline.NewDebug(src, func(img *imagepipeline.Image) error {
			captured = img
			return nil
		}), nil
	})
	got, err := s.GetAllData()
	require.NoError(t, err)
	require.NotNil(t, captured)
	require.Equal(t, got, captured.Data)
	require.Equal(t, 2, captured.Height)
}

var errStall = errors.New("stall")

// stallingSource wraps a node and fails the pull with the given (1-based)
// index once, without producing a row.
type stallingSource struct {
	imagepipeline.Node
	stallAt int
	pulls   int
}

func (s *stallingSource) GetNextRowData(out []byte) error {
	s.pulls++
	if s.pulls == s.stallAt {
		return errStall
	}
	return s.Node.GetNextRowData(out)
}

func stalling(t *testing.T, width int, format imagepipeline.PixelFormat, stallAt int, rows ...[]byte) *stallingSource {
	t.Helper()
	var data []byte
	for _, row := range rows {
		data = append(data, row...)
	}
	src, err := imagepipeline.NewArraySource(width, len(rows), format, data)
	require.NoError(t, err)
	return &stallingSource{Node: src, stallAt: stallAt}
}

func TestMultiRowNodesResumeAfterError(t *testing.T) {
	for _, test := range []struct {
		name  string
		build func(t *testing.T) imagepipeline.Node
		want  [][]byte
	}{
		{
			name: "deinterleave",
			build: func(t *testing.T) imagepipeline.Node {
				src := stalling(t, 2, imagepipeline.I8, 2,
					[]byte{1, 3}, []byte{2, 4}, []byte{5, 7}, []byte{6, 8})
				n, err := imagepipeline.NewDeinterleaveLines(src, 2)
				require.NoError(t, err)
				return n
			},
			want: [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}},
		},
		{
			name: "component shift",
			build: func(t *testing.T) imagepipeline.Node {
				src := stalling(t, 1, imagepipeline.RGB888, 2,
					[]byte{10, 20, 30}, []byte{11, 21, 31}, []byte{12, 22, 32})
				n, err := imagepipeline.NewComponentShiftLines(src, 0, 1, 0)
				require.NoError(t, err)
				return n
			},
			want: [][]byte{{10, 21, 30}, {11, 22, 31}},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			n := test.build(t)
			out := make([]byte, imagepipeline.RowBytes(n.Format(), n.Width()))
			for i := range out {
				out[i] = 0xee
			}
			untouched := append([]byte(nil), out...)
			require.ErrorIs(t, n.GetNextRowData(out), errStall)
			require.Equal(t, untouched, out)
			for _, want := range test.want {
				require.NoError(t, n.GetNextRowData(out))
				require.Equal(t, want, out)
			}
			require.ErrorIs(t, n.GetNextRowData(out), imagepipeline.ErrNoData)
		})
	}
}
