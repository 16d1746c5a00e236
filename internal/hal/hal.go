// Package hal isolates the daemon from the hardware interfaces. Buttons are
// read through the Linux GPIO character device and the potentiometer through
// an ADS1115 ADC on the I2C bus. Fake implementations allow testing without
// hardware.
//
// Both readers are pure sensor reads at a fixed polling cadence; no filtering
// or interpretation happens here.
package hal

// DigitalReader reads the raw levels of the configured GPIO lines.
type DigitalReader interface {
	// ReadLines returns one raw level per configured line, in the order the
	// lines were requested. No polarity is applied; active-low handling
	// belongs to the debouncer.
	ReadLines() ([]bool, error)

	// Close releases the GPIO resources.
	Close() error
}

// AnalogSampler reads raw conversions from the configured ADC channel.
type AnalogSampler interface {
	// Sample returns the latest raw reading. The range depends on the
	// converter; the ADS1115 in single-ended mode yields 0..32767.
	Sample() (int, error)

	// Close releases the bus.
	Close() error
}
