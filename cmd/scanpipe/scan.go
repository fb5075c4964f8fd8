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
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stapelberg/scanpipe/internal/genesys"
	"github.com/stapelberg/scanpipe/internal/mayqtt"
	"github.com/stapelberg/scanpipe/internal/rasterout"
	"github.com/stapelberg/scanpipe/internal/usb"
	"golang.org/x/net/trace"
)

type scanOptions struct {
	vendor        string
	product       string
	endpoint      uint8
	out           string
	mqttBroker    string
	waitMQTT      bool
	metricsListen string
	output        rasterout.Options
}

func newScanCmd(v *viper.Viper) *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read the image data of a scan in progress from a USB scanner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scan(cmd.Context(), v, opts)
		},
	}
	cmd.Flags().StringVar(&opts.vendor, "vendor", "04a9", "USB vendor id of the scanner, in hex")
	cmd.Flags().StringVar(&opts.product, "product", "", "USB product id of the scanner, in hex")
	cmd.Flags().Uint8Var(&opts.endpoint, "endpoint", 0x81, "bulk-in endpoint image data is read from")
	cmd.Flags().StringVar(&opts.out, "out", "", "path of the output image (.png, .tiff or .pnm)")
	cmd.Flags().StringVar(&opts.mqttBroker, "mqtt_broker", "", "if non-empty, MQTT broker (e.g. tcp://dr.lan:1883) to publish status to")
	cmd.Flags().BoolVar(&opts.waitMQTT, "wait_mqtt", false, "wait for a scan request on "+mayqtt.ScanTopic+" before reading")
	cmd.Flags().StringVar(&opts.metricsListen, "metrics_listen", "", "if non-empty, [host]:port on which to serve /metrics and /debug/requests")
	cmd.Flags().BoolVar(&opts.output.Rotate180, "rotate180", false, "rotate the output by 180 degrees")
	cmd.Flags().BoolVar(&opts.output.Deflate, "deflate", false, "compress TIFF output")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("out")
	return cmd
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/requests", trace.Traces)
	mux.HandleFunc("/debug/events", trace.Events)
	log.Printf("serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics: %v", err)
	}
}

func scan(ctx context.Context, v *viper.Viper, opts scanOptions) (err error) {
	if opts.waitMQTT && opts.mqttBroker == "" {
		return errors.New("--wait_mqtt requires --mqtt_broker")
	}
	status, err := mayqtt.Dial(opts.mqttBroker, "scanpipe")
	if err != nil {
		return err
	}
	defer status.Close()
	defer func() {
		if err != nil {
			status.Publishf("scan failed: %v", err)
		}
	}()

	if opts.metricsListen != "" {
		go serveMetrics(opts.metricsListen)
	}

	if opts.waitMQTT {
		status.Publishf("waiting for scan request")
		select {
		case req := <-status.Requests():
			if req.Profile != "" {
				v.Set("profile", req.Profile)
			}
			if req.Out != "" {
				opts.out = req.Out
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	session, err := loadSession(v)
	if err != nil {
		return err
	}

	dev, err := usb.FindDevice(opts.vendor, opts.product, usb.Options{Endpoint: opts.endpoint})
	if err != nil {
		return err
	}
	defer dev.Close()

	tr := trace.New("scanpipe", "scan")
	defer tr.Finish()
	ctx = trace.NewContext(ctx, tr)

	p, err := genesys.BuildPipeline(ctx, *session, dev.Producer())
	if err != nil {
		return err
	}
	defer p.Close()
	tr.LazyPrintf("pipeline %s: %d nodes, %dx%d %v", p.ID, p.NodeCount(), p.Width(), p.Height(), p.Format())

	start := time.Now()
	status.Publishf("scanning")
	img, err := reconstruct(ctx, p, status.Publishf)
	if err != nil {
		tr.SetError()
		return err
	}
	tr.LazyPrintf("scan done in %v", time.Since(start))

	if err := rasterout.Write(opts.out, img, opts.output); err != nil {
		return err
	}
	log.Printf("wrote %dx%d image to %s", img.Width, img.Height, opts.out)
	status.Publishf("scan done: %s", opts.out)
	return nil
}
