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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stapelberg/scanpipe/internal/genesys"
	"github.com/stapelberg/scanpipe/internal/profile"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "scanpipe",
		Short: "Reconstruct scanned images from raw Genesys USB transfers",
		Long: `scanpipe turns the raw sensor data of a scan session into an image.

The geometry of the session (segments, line distances, interleaving) is read
from a profile, see --profile. Profile keys can be overridden with SCANPIPE_*
environment variables, e.g. SCANPIPE_CHUNK_SIZE=4096.

Examples:
  scanpipe replay --profile lide.yaml --raw dump.bin --out page.tiff
  scanpipe scan --profile lide.yaml --vendor 04a9 --product 1909 --out page.png`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("profile", "", "scan profile (default is scanpipe.yaml in ., $XDG_CONFIG_HOME/scanpipe, /etc/scanpipe)")
	root.PersistentFlags().Int("chunk_size", 0, "if non-zero, overrides the chunk size of the profile")
	v.BindPFlag("profile", root.PersistentFlags().Lookup("profile"))
	v.BindPFlag("chunk_size", root.PersistentFlags().Lookup("chunk_size"))

	root.AddCommand(newReplayCmd(v))
	root.AddCommand(newScanCmd(v))
	return root
}

// loadSession reads the profile named by the --profile flag, with flag and
// environment overrides applied.
func loadSession(v *viper.Viper) (*genesys.Session, error) {
	path := v.GetString("profile")
	p, err := profile.Read(v, path)
	if err != nil {
		return nil, err
	}
	s, err := p.Session()
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", v.ConfigFileUsed(), err)
	}
	return s, nil
}
