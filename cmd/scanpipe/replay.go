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
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stapelberg/scanpipe/internal/genesys"
	"github.com/stapelberg/scanpipe/internal/imagepipeline"
	"github.com/stapelberg/scanpipe/internal/rasterout"
)

type replayOptions struct {
	raw      string
	out      string
	rawOut   string
	truncate int
	output   rasterout.Options
}

func newReplayCmd(v *viper.Viper) *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reconstruct an image from a dump of a raw transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), v, opts)
		},
	}
	cmd.Flags().StringVar(&opts.raw, "raw", "", "path to the raw transfer dump")
	cmd.Flags().StringVar(&opts.out, "out", "", "path of the output image (.png, .tiff or .pnm)")
	cmd.Flags().StringVar(&opts.rawOut, "raw_out", "", "if non-empty, path of an image of the unprocessed sensor data, for calibration")
	cmd.Flags().IntVar(&opts.truncate, "truncate", 0, "if non-zero, end the transfer after this many bytes, like a sheet-fed scanner which detected the end of the document")
	cmd.Flags().BoolVar(&opts.output.Rotate180, "rotate180", false, "rotate the output by 180 degrees")
	cmd.Flags().BoolVar(&opts.output.Deflate, "deflate", false, "compress TIFF output")
	cmd.MarkFlagRequired("raw")
	cmd.MarkFlagRequired("out")
	return cmd
}

func replay(ctx context.Context, v *viper.Viper, opts replayOptions) error {
	session, err := loadSession(v)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.raw)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if total := int64(session.TotalBytes()); opts.truncate == 0 && st.Size() < total {
		return fmt.Errorf("%s holds %d bytes, the profile needs %d", opts.raw, st.Size(), total)
	}

	var buildOpts []genesys.Option
	if opts.rawOut != "" {
		buildOpts = append(buildOpts, genesys.WithRawSink(func(img *imagepipeline.Image) error {
			return rasterout.Write(opts.rawOut, img, rasterout.Options{})
		}))
	}
	p, err := genesys.BuildPipeline(ctx, *session, paddedProducer(bufio.NewReaderSize(f, 1<<20)), buildOpts...)
	if err != nil {
		return err
	}
	defer p.Close()
	if opts.truncate > 0 {
		p.Truncate(opts.truncate)
	}

	start := time.Now()
	img, err := reconstruct(ctx, p, nil)
	if err != nil {
		return err
	}
	log.Printf("reconstructed %dx%d %v image from %s in %v", img.Width, img.Height, img.Format, opts.raw, time.Since(start))
	return rasterout.Write(opts.out, img, opts.output)
}
