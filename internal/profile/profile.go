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

// Package profile loads the geometry of a scan session from a profile file,
// as produced when calibrating a scanner model.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/stapelberg/scanpipe/internal/genesys"
	"github.com/stapelberg/scanpipe/internal/imagepipeline"
)

const (
	// FileName is the base name of the profile searched for when no
	// path is given.
	FileName = "scanpipe"

	// EnvPrefix is the prefix of environment variables overriding profile
	// keys, e.g. SCANPIPE_CHUNK_SIZE.
	EnvPrefix = "SCANPIPE"
)

// Profile is the on-disk representation of a genesys.Session.
type Profile struct {
	Name string `mapstructure:"name"`

	OutputPixels int    `mapstructure:"output_pixels"`
	OutputLines  int    `mapstructure:"output_lines"`
	Channels     int    `mapstructure:"channels"`
	Depth        int    `mapstructure:"depth"`
	ColorOrder   string `mapstructure:"color_order"`
	OutputFormat string `mapstructure:"output_format"`

	Segments          Segments `mapstructure:"segments"`
	DeinterleaveLines int      `mapstructure:"deinterleave_lines"`
	MonoPasses        bool     `mapstructure:"mono_passes"`
	Shift             Shift    `mapstructure:"shift"`

	SwapBytes bool `mapstructure:"swap_bytes"`
	Invert    bool `mapstructure:"invert"`
	CropStart int  `mapstructure:"crop_start"`

	ChunkSize   int                  `mapstructure:"chunk_size"`
	BufferModel []genesys.BufferStep `mapstructure:"buffer_model"`
}

type Segments struct {
	Count            int   `mapstructure:"count"`
	Order            []int `mapstructure:"order"`
	PixelGroups      int   `mapstructure:"pixel_groups"`
	GroupSize        int   `mapstructure:"group_size"`
	InterleavedLines int   `mapstructure:"interleaved_lines"`
}

type Shift struct {
	R       int   `mapstructure:"r"`
	G       int   `mapstructure:"g"`
	B       int   `mapstructure:"b"`
	Stagger []int `mapstructure:"stagger"`
	Columns []int `mapstructure:"columns"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("channels", 3)
	v.SetDefault("depth", 8)
	v.SetDefault("color_order", "rgb")
	v.SetDefault("segments.count", 1)
	v.SetDefault("segments.group_size", 1)
	v.SetDefault("segments.interleaved_lines", 1)
	v.SetDefault("deinterleave_lines", 1)
	v.SetDefault("chunk_size", 65536)
}

func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		v.AddConfigPath(filepath.Join(configDir, "scanpipe"))
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "scanpipe"))
	}
	v.AddConfigPath("/etc/scanpipe")
}

// Read reads the profile at path into v, or searches for scanpipe.yaml (and
// other extensions viper understands) when path is empty. Keys may be
// overridden by environment variables and by flags bound to v.
func Read(v *viper.Viper, path string) (*Profile, error) {
	if path == "" {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	} else {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading profile: %w", err)
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", v.ConfigFileUsed(), err)
	}
	return &p, nil
}

// Session converts p into a validated session.
func (p *Profile) Session() (*genesys.Session, error) {
	order, err := imagepipeline.ParseColorOrder(p.ColorOrder)
	if err != nil {
		return nil, err
	}
	var format imagepipeline.PixelFormat
	if p.OutputFormat != "" {
		if format, err = imagepipeline.ParsePixelFormat(p.OutputFormat); err != nil {
			return nil, err
		}
	}
	s := &genesys.Session{
		OutputPixels:       p.OutputPixels,
		OutputLines:        p.OutputLines,
		Channels:           p.Channels,
		Depth:              p.Depth,
		ColorOrder:         order,
		OutputFormat:       format,
		SegmentCount:       p.Segments.Count,
		SegmentOrder:       p.Segments.Order,
		SegmentPixelGroups: p.Segments.PixelGroups,
		PixelGroupSize:     p.Segments.GroupSize,
		InterleavedLines:   p.Segments.InterleavedLines,
		DeinterleaveLines:  p.DeinterleaveLines,
		MonoPasses:         p.MonoPasses,
		ShiftR:             p.Shift.R,
		ShiftG:             p.Shift.G,
		ShiftB:             p.Shift.B,
		StaggerShifts:      p.Shift.Stagger,
		ColumnShifts:       p.Shift.Columns,
		SwapBytes:          p.SwapBytes,
		Invert:             p.Invert,
		ChunkSize:          p.ChunkSize,
		BufferSteps:        p.BufferModel,
		CropStart:          p.CropStart,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the profile at path and returns its validated session.
func Load(path string) (*genesys.Session, error) {
	p, err := Read(viper.New(), path)
	if err != nil {
		return nil, err
	}
	s, err := p.Session()
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return s, nil
}
