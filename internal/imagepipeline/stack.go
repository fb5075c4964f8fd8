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
	"errors"
	"fmt"
)

var errEmpty = errors.New("pipeline has no nodes")

// Stack owns a chain of nodes and pulls rows from its last node.
type Stack struct {
	nodes []Node
}

// PushFirstNode installs the node rows originate from. It fails if the stack
// already has nodes.
func (s *Stack) PushFirstNode(n Node) error {
	if len(s.nodes) > 0 {
		return fmt.Errorf("%w: first node pushed onto a stack of %d nodes", ErrGeometry, len(s.nodes))
	}
	s.nodes = append(s.nodes, n)
	return nil
}

// PushNode calls build with the current last node and appends the node it
// returns. The new node must consume the node it was given, i.e. report it
// from its Source method.
func (s *Stack) PushNode(build func(src Node) (Node, error)) (Node, error) {
	if len(s.nodes) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, errEmpty)
	}
	end := s.nodes[len(s.nodes)-1]
	n, err := build(end)
	if err != nil {
		return nil, err
	}
	u, ok := n.(interface{ Source() Node })
	if !ok || u.Source() != end {
		return nil, fmt.Errorf("%w: %T was not built on top of %T", ErrGeometry, n, end)
	}
	s.nodes = append(s.nodes, n)
	return n, nil
}

// Clear drops all nodes.
func (s *Stack) Clear() {
	s.nodes = nil
}

// NodeCount returns the number of nodes in the stack.
func (s *Stack) NodeCount() int { return len(s.nodes) }

func (s *Stack) first() Node {
	if len(s.nodes) == 0 {
		return nil
	}
	return s.nodes[0]
}

func (s *Stack) last() Node {
	if len(s.nodes) == 0 {
		return nil
	}
	return s.nodes[len(s.nodes)-1]
}

func (s *Stack) InputWidth() int {
	if n := s.first(); n != nil {
		return n.Width()
	}
	return 0
}

func (s *Stack) InputHeight() int {
	if n := s.first(); n != nil {
		return n.Height()
	}
	return 0
}

func (s *Stack) InputFormat() PixelFormat {
	if n := s.first(); n != nil {
		return n.Format()
	}
	return Unknown
}

func (s *Stack) Width() int {
	if n := s.last(); n != nil {
		return n.Width()
	}
	return 0
}

func (s *Stack) Height() int {
	if n := s.last(); n != nil {
		return n.Height()
	}
	return 0
}

func (s *Stack) Format() PixelFormat {
	if n := s.last(); n != nil {
		return n.Format()
	}
	return Unknown
}

// RowBytes returns the size of one output row.
func (s *Stack) RowBytes() int {
	return RowBytes(s.Format(), s.Width())
}

// GetNextRowData fills out with the next output row.
func (s *Stack) GetNextRowData(out []byte) error {
	n := s.last()
	if n == nil {
		return errEmpty
	}
	if got, want := len(out), s.RowBytes(); got < want {
		return fmt.Errorf("%w: row buffer of %d bytes, want %d", ErrGeometry, got, want)
	}
	return n.GetNextRowData(out)
}

// GetAllData pulls all Height() rows and returns them concatenated.
func (s *Stack) GetAllData() ([]byte, error) {
	if s.last() == nil {
		return nil, errEmpty
	}
	rowBytes := s.RowBytes()
	height := s.Height()
	data := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		if err := s.GetNextRowData(data[y*rowBytes : (y+1)*rowBytes]); err != nil {
			return nil, fmt.Errorf("row %d of %d: %w", y, height, err)
		}
	}
	return data, nil
}

// GetImage is like GetAllData, but wraps the data into an Image.
func (s *Stack) GetImage() (*Image, error) {
	data, err := s.GetAllData()
	if err != nil {
		return nil, err
	}
	return &Image{
		Format: s.Format(),
		Width:  s.Width(),
		Height: s.Height(),
		Data:   data,
	}, nil
}
