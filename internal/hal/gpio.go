//go:build linux

package hal

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOReader reads button lines from actual hardware using the Linux GPIO
// character device.
type GPIOReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewGPIOReader requests the given lines as inputs on the named chip.
// Buttons are wired to ground, so lines are pulled up; a pressed button
// reads low. Any line that cannot be requested is a fatal error — the
// daemon proves every configured line reachable once at startup.
func NewGPIOReader(chipName string, lineNums []int) (*GPIOReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &GPIOReader{chip: chip}
	for _, num := range lineNums {
		line, err := chip.RequestLine(num, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request line %d: %w", num, err)
		}
		r.lines = append(r.lines, line)
	}
	return r, nil
}

// ReadLines returns the raw level of each requested line in request order.
func (r *GPIOReader) ReadLines() ([]bool, error) {
	out := make([]bool, len(r.lines))
	for i, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line.Offset(), err)
		}
		out[i] = v != 0
	}
	return out, nil
}

// Close releases all requested lines and the chip.
func (r *GPIOReader) Close() error {
	var errs []error
	for _, line := range r.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", line.Offset(), err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
