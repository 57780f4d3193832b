package hardware

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// I2CBus is an open Linux i2c-dev character device.
type I2CBus struct {
	fd   int
	path string
}

// OpenI2C opens an i2c-dev node such as /dev/i2c-1. Call SetAddress
// before reading or writing.
func OpenI2C(path string) (*I2CBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return &I2CBus{fd: fd, path: path}, nil
}

// I2COpener adapts OpenI2C to an Opener.
func I2COpener(path string) (Bus, error) {
	b, err := OpenI2C(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SetAddress selects the 7-bit slave address for subsequent transfers.
func (b *I2CBus) SetAddress(addr uint8) error {
	if addr > MaxAddress {
		return fmt.Errorf("address 0x%02x is outside the 7-bit range", addr)
	}
	if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("I2C_SLAVE ioctl on %s: %w", b.path, err)
	}
	return nil
}

func (b *I2CBus) Write(p []byte) (int, error) {
	n, err := unix.Write(b.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *I2CBus) Read(p []byte) (int, error) {
	n, err := unix.Read(b.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *I2CBus) Close() error {
	if b.fd < 0 {
		return os.ErrClosed
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
