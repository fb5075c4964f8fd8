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

//go:build linux

package usb

import (
	"fmt"
	"log"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TODO: move UsbdevfsBulkTransfer and USBDEVFS_* constants to x/sys/unix
type usbdevfsBulkTransfer struct {
	Ep        uint32
	Len       uint32
	Timeout   uint32
	Pad_cgo_0 [4]byte
	Data      *byte
}

const (
	uSBDEVFS_BULK             = 0xc0185502
	uSBDEVFS_CLAIMINTERFACE   = 0x8004550f
	uSBDEVFS_RELEASEINTERFACE = 0x80045510
)

// Device represents a USB device.
type Device struct {
	name    string // within usbDevicesRoot
	devName string
	opts    Options
	f       *os.File
}

func newDevice(name string, opts Options) (*Device, error) {
	dev := &Device{name: name, opts: opts}

	var err error
	if dev.devName, err = devName(usbDevicesRoot, name); err != nil {
		return nil, err
	}

	dev.f, err = os.OpenFile(dev.devName, os.O_RDWR, 0664)
	if err != nil {
		return nil, err
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.f.Fd(), uSBDEVFS_CLAIMINTERFACE, uintptr(unsafe.Pointer(&dev.opts.Interface))); errno != 0 {
		dev.f.Close()
		return nil, fmt.Errorf("claiming interface %d of %s: %w", dev.opts.Interface, dev.devName, errno)
	}

	return dev, nil
}

// Read transfers up to len(p) bytes from the device to the host via
// blocking USB bulk transfer.
func (u *Device) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	bulk := usbdevfsBulkTransfer{
		Ep:      uint32(u.opts.Endpoint),
		Len:     uint32(len(p)),
		Timeout: uint32(u.opts.Timeout.Milliseconds()),
		Data:    &(p[0]),
	}
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, u.f.Fd(), uSBDEVFS_BULK, uintptr(unsafe.Pointer(&bulk)))
	if errno != 0 {
		return 0, errno
	}
	// USBDEVFS_BULK returns the number of bytes transferred.
	return int(r), nil
}

// Close releases all resources associated with the Device. The
// Device must not be used after calling Close.
func (u *Device) Close() error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, u.f.Fd(), uSBDEVFS_RELEASEINTERFACE, uintptr(unsafe.Pointer(&u.opts.Interface))); errno != 0 {
		return errno
	}

	return u.f.Close()
}

// FindDevice returns a ready-to-use Device object for the device with the
// given vendor and product id (lower-case hex, e.g. "04a9"), or a non-nil
// error if it is not connected.
func FindDevice(vendor, product string, opts Options) (*Device, error) {
	name, err := findName(usbDevicesRoot, vendor, product)
	if err != nil {
		return nil, err
	}
	dev, err := newDevice(name, opts.withDefaults())
	if err != nil {
		return nil, err
	}
	log.Printf("using USB device %s (%s:%s) at %s, endpoint %#x", name, vendor, product, dev.devName, dev.opts.Endpoint)
	return dev, nil
}
