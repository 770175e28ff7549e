// Copyright 2020 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package bridge

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// From /usr/include/linux/i2c-dev.h and /usr/include/linux/i2c.h
const (
	i2cSlave = 0x0703
	i2cFuncs = 0x0705
	i2cSmbus = 0x0720

	i2cSmbusRead  = 1
	i2cSmbusWrite = 0

	i2cFuncSmbusQuick         = 0x00010000
	i2cFuncSmbusReadByte      = 0x00020000
	i2cFuncSmbusWriteByte     = 0x00040000
	i2cFuncSmbusReadByteData  = 0x00080000
	i2cFuncSmbusWriteByteData = 0x00100000

	i2cSmbusQuick    = 0
	i2cSmbusByte     = 1
	i2cSmbusByteData = 2
)

type i2cSmbusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

// i2cDevice is a handle on /dev/i2c-N bound to a single slave address.
// Handles are only used from the bus queue processor.
type i2cDevice struct {
	address uint8
	file    *os.File
	funcs   uint64 // adapter functionality mask
}

// newI2CDevice opens the bus at given location and binds it to the given address.
func newI2CDevice(location string, address uint8) (*i2cDevice, error) {
	f, err := os.OpenFile(location, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s failed", location)
	}
	d := &i2cDevice{
		address: address,
		file:    f,
	}
	if err := d.ioctl(i2cFuncs, uintptr(unsafe.Pointer(&d.funcs))); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "query functionality failed")
	}
	if err := d.ioctl(i2cSlave, uintptr(address)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "set address 0x%02x failed", address)
	}
	return d, nil
}

// Close the device file.
func (d *i2cDevice) Close() error {
	return d.file.Close()
}

// Detect probes the device with an SMBus quick command.
func (d *i2cDevice) Detect() error {
	if d.funcs&i2cFuncSmbusQuick == 0 {
		return fmt.Errorf("SMBus quick not supported")
	}
	return d.smbusAccess(i2cSmbusWrite, 0, i2cSmbusQuick, 0)
}

// ReadByteReg reads a byte from given register.
func (d *i2cDevice) ReadByteReg(reg uint8) (uint8, error) {
	if d.funcs&i2cFuncSmbusReadByteData == 0 {
		return 0, fmt.Errorf("SMBus read byte data not supported")
	}
	var data uint8
	if err := d.smbusAccess(i2cSmbusRead, reg, i2cSmbusByteData, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(err, "readByteData[0x%02x](0x%02x) failed", d.address, reg)
	}
	return data, nil
}

// WriteByteReg writes a byte to given register.
func (d *i2cDevice) WriteByteReg(reg uint8, val uint8) error {
	if d.funcs&i2cFuncSmbusWriteByteData == 0 {
		return fmt.Errorf("SMBus write byte data not supported")
	}
	data := val
	if err := d.smbusAccess(i2cSmbusWrite, reg, i2cSmbusByteData, uintptr(unsafe.Pointer(&data))); err != nil {
		return errors.Wrapf(err, "writeByteData[0x%02x](0x%02x, 0x%02x) failed", d.address, reg, val)
	}
	return nil
}

// ReadByte reads a byte from the device.
func (d *i2cDevice) ReadByte() (byte, error) {
	if d.funcs&i2cFuncSmbusReadByte == 0 {
		return 0, fmt.Errorf("SMBus read byte not supported")
	}
	var data uint8
	if err := d.smbusAccess(i2cSmbusRead, 0, i2cSmbusByte, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(err, "readByte[0x%02x] failed", d.address)
	}
	return data, nil
}

// WriteByte writes a byte to the device.
func (d *i2cDevice) WriteByte(val byte) error {
	if d.funcs&i2cFuncSmbusWriteByte == 0 {
		return fmt.Errorf("SMBus write byte not supported")
	}
	if err := d.smbusAccess(i2cSmbusWrite, val, i2cSmbusByte, 0); err != nil {
		return errors.Wrapf(err, "writeByte[0x%02x](0x%02x) failed", d.address, val)
	}
	return nil
}

// ReadDevice reads a block of data directly from the device.
func (d *i2cDevice) ReadDevice(data []byte) error {
	n, err := d.file.Read(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("expected to read %d bytes, actual read bytes is %d", len(data), n)
	}
	return nil
}

// WriteDevice writes a block of data directly to the device.
func (d *i2cDevice) WriteDevice(data []byte) error {
	n, err := d.file.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("expected to write %d bytes, actual written bytes is %d", len(data), n)
	}
	return nil
}

func (d *i2cDevice) smbusAccess(readWrite byte, command byte, size uint32, data uintptr) error {
	smbus := &i2cSmbusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      size,
		data:      data,
	}
	return d.ioctl(i2cSmbus, uintptr(unsafe.Pointer(smbus)))
}

func (d *i2cDevice) ioctl(req uint, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), uintptr(req), arg); errno != 0 {
		return errno
	}
	return nil
}
