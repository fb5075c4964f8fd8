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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	usbReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanpipe_usb_reads_total",
			Help: "Total number of bulk reads issued for image data",
		},
		[]string{"status"}, // ok, error
	)

	usbReadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scanpipe_usb_read_bytes_total",
			Help: "Total number of image bytes read, including alignment padding",
		},
	)

	usbTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scanpipe_usb_truncations_total",
			Help: "Total number of transfers shortened after the document end was detected",
		},
	)

	pipelineRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scanpipe_pipeline_rows_total",
			Help: "Total number of output rows produced by image pipelines",
		},
	)
)
