//go:build linux

package hal

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ADS1115 register pointers.
const (
	adsRegConversion = 0x00
	adsRegConfig     = 0x01
)

// hostInitOnce guards periph host initialization, which must run exactly once
// per process regardless of how many devices are opened.
var hostInitOnce sync.Once

// ADS1115 samples one single-ended channel of a TI ADS1115 16-bit ADC over
// I2C. The converter is put in continuous conversion mode at construction so
// Sample only has to read the conversion register.
type ADS1115 struct {
	bus i2c.BusCloser
	dev i2c.Dev
}

// NewADS1115 opens the bus and configures the converter for continuous
// single-ended conversion of the given channel at ±4.096V full scale and
// 32 samples per second. An unreachable device is a fatal error.
func NewADS1115(busName string, addr uint16, channel int) (*ADS1115, error) {
	if channel < 0 || channel > 3 {
		return nil, fmt.Errorf("adc channel %d out of range 0-3", channel)
	}

	var hostErr error
	hostInitOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("init periph host: %w", hostErr)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", busName, err)
	}

	a := &ADS1115{
		bus: bus,
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}

	// Config register, MSB first:
	//   OS=0 (ignored in continuous mode)
	//   MUX=100+channel (single-ended AINx vs GND)
	//   PGA=001 (±4.096V)
	//   MODE=0 (continuous conversion)
	//   DR=010 (32 SPS)
	//   comparator disabled
	cfg := uint16(4+channel)<<12 | 1<<9 | 2<<5 | 0x3
	wbuf := []byte{adsRegConfig, byte(cfg >> 8), byte(cfg)}
	if err := a.dev.Tx(wbuf, nil); err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure ads1115 at 0x%02x: %w", addr, err)
	}

	// Read the config back to prove the device is actually there and
	// answering, not just that the bus write was accepted.
	var rbuf [2]byte
	if err := a.dev.Tx([]byte{adsRegConfig}, rbuf[:]); err != nil {
		bus.Close()
		return nil, fmt.Errorf("verify ads1115 at 0x%02x: %w", addr, err)
	}

	return a, nil
}

// Sample reads the latest conversion. Readings below zero (a single-ended
// input floating slightly negative) clamp to 0.
func (a *ADS1115) Sample() (int, error) {
	var rbuf [2]byte
	if err := a.dev.Tx([]byte{adsRegConversion}, rbuf[:]); err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}
	raw := int(int16(uint16(rbuf[0])<<8 | uint16(rbuf[1])))
	if raw < 0 {
		raw = 0
	}
	return raw, nil
}

// Close releases the I2C bus.
func (a *ADS1115) Close() error {
	if a.bus == nil {
		return nil
	}
	err := a.bus.Close()
	a.bus = nil
	if err != nil {
		return fmt.Errorf("close i2c bus: %w", err)
	}
	return nil
}
