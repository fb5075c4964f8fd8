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

//go:build !linux

package usb

import (
	"errors"
	"runtime"
)

// Device represents a USB device.
type Device struct{}

func (u *Device) Read(p []byte) (n int, err error) {
	return 0, errors.New("usb access is only supported on Linux")
}

func (u *Device) Close() error {
	return nil
}

func FindDevice(vendor, product string, opts Options) (*Device, error) {
	return nil, errors.New("usb access is not supported on " + runtime.GOOS)
}
