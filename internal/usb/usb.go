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

// Package usb is a minimal library which uses Linux’s usbdevfs and /sys
// interfaces to read image data from a scanner via USB bulk transfers.
package usb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/stapelberg/scanpipe/internal/imagepipeline"
)

const usbDevicesRoot = "/sys/bus/usb/devices"

var (
	// ErrNotFound is returned by FindDevice when no matching device is
	// connected.
	ErrNotFound = errors.New("usb device not found")

	// ErrShortRead is returned by producers when the device delivered
	// fewer bytes than requested.
	ErrShortRead = errors.New("short bulk read")
)

// Options configures how a Device is accessed.
type Options struct {
	// Interface is the USB interface number to claim.
	Interface uint32

	// Endpoint is the bulk-in endpoint image data is read from. Zero
	// selects 0x81.
	Endpoint uint8

	// Timeout applies to each bulk transfer. Zero selects 3 seconds.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Endpoint == 0 {
		o.Endpoint = 0x81
	}
	if o.Timeout == 0 {
		o.Timeout = 3 * time.Second
	}
	return o
}

// badName returns true for names within usbDevicesRoot which do not
// represent a USB device (but a host controller, interface,
// etc.). USB device names consist of digits, dots and dashes,
// starting with a digit.
func badName(name string) bool {
	if name == "" {
		return true
	}

	r, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsDigit(r) {
		return true
	}

	for _, r := range name {
		if r != '.' && r != '-' && !unicode.IsDigit(r) {
			return true
		}
	}

	return false
}

// findName returns the name within root of the device with the given
// vendor and product id (lower-case hex, e.g. "04a9").
func findName(root, vendor, product string) (string, error) {
	names, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	for _, entry := range names {
		dev := entry.Name()
		if badName(dev) {
			continue
		}
		idProduct, err := os.ReadFile(filepath.Join(root, dev, "idProduct"))
		if err != nil {
			return "", err
		}
		idVendor, err := os.ReadFile(filepath.Join(root, dev, "idVendor"))
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(idProduct)) == product &&
			strings.TrimSpace(string(idVendor)) == vendor {
			return dev, nil
		}
	}
	return "", fmt.Errorf("%w: product==%q, vendor==%q", ErrNotFound, product, vendor)
}

// devName returns the path of the device node of the device called name
// within root, as announced in its uevent file.
func devName(root, name string) (string, error) {
	uevent, err := os.ReadFile(filepath.Join(root, name, "uevent"))
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(uevent), "\n") {
		if strings.HasPrefix(line, "DEVNAME=") {
			return filepath.Join("/dev", strings.TrimPrefix(line, "DEVNAME=")), nil
		}
	}
	return "", fmt.Errorf("%q unexpectedly did not not contain a DEVNAME= line", filepath.Join(root, name, "uevent"))
}

// NewProducer returns a function which fills its argument with exactly one
// read from r.
func NewProducer(r io.Reader) imagepipeline.ProducerFunc {
	return func(p []byte) error {
		n, err := r.Read(p)
		if err != nil {
			return err
		}
		if n != len(p) {
			return fmt.Errorf("%w: %d of %d bytes", ErrShortRead, n, len(p))
		}
		return nil
	}
}

// Producer returns a function which reads image data from d, for use with
// genesys.NewImageBuffer.
func (d *Device) Producer() imagepipeline.ProducerFunc {
	return NewProducer(d)
}
