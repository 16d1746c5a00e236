//go:build !linux

package hal

import "errors"

var errNotSupported = errors.New("hal: not supported on this platform (requires Linux)")

// GPIOReader is not available on non-Linux platforms.
type GPIOReader struct{}

// NewGPIOReader returns an error on non-Linux platforms.
func NewGPIOReader(chipName string, lineNums []int) (*GPIOReader, error) {
	return nil, errNotSupported
}

// ReadLines is not implemented on non-Linux platforms.
func (r *GPIOReader) ReadLines() ([]bool, error) { return nil, errNotSupported }

// Close is not implemented on non-Linux platforms.
func (r *GPIOReader) Close() error { return nil }

// ADS1115 is not available on non-Linux platforms.
type ADS1115 struct{}

// NewADS1115 returns an error on non-Linux platforms.
func NewADS1115(busName string, addr uint16, channel int) (*ADS1115, error) {
	return nil, errNotSupported
}

// Sample is not implemented on non-Linux platforms.
func (a *ADS1115) Sample() (int, error) { return 0, errNotSupported }

// Close is not implemented on non-Linux platforms.
func (a *ADS1115) Close() error { return nil }
