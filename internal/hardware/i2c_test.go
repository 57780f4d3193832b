package hardware

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenI2CMissingDevice(t *testing.T) {
	_, err := OpenI2C(filepath.Join(t.TempDir(), "i2c-9"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected not-exist error, got %v", err)
	}
}

func TestI2COpenerMissingDevice(t *testing.T) {
	bus, err := I2COpener(filepath.Join(t.TempDir(), "i2c-9"))
	if err == nil || bus != nil {
		t.Fatalf("Expected nil bus and error, got %v, %v", bus, err)
	}
}

func TestSetAddressRange(t *testing.T) {
	b := &I2CBus{fd: -1, path: "test"}
	if err := b.SetAddress(0x80); err == nil {
		t.Error("Expected error for 8-bit address")
	}
}

func TestSetAddressNotAnI2CDevice(t *testing.T) {
	b, err := OpenI2C(os.DevNull)
	if err != nil {
		t.Skipf("Cannot open %s: %v", os.DevNull, err)
	}
	defer b.Close()

	if err := b.SetAddress(DefaultAddress); err == nil {
		t.Error("Expected I2C_SLAVE ioctl to fail on a non-i2c device")
	}
}

func TestCloseTwice(t *testing.T) {
	b, err := OpenI2C(os.DevNull)
	if err != nil {
		t.Skipf("Cannot open %s: %v", os.DevNull, err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Close(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Expected os.ErrClosed on second close, got %v", err)
	}
}
