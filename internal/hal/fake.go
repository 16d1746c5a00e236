package hal

import "errors"

// FakeDigital is a test double that returns scripted line levels.
type FakeDigital struct {
	// Samples contains scripted line readings. Each call to ReadLines
	// consumes the next sample; the last one repeats once exhausted.
	Samples [][]bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadLines()
	ReadError error
}

// NewFakeDigital creates a FakeDigital with the given samples.
func NewFakeDigital(samples [][]bool) *FakeDigital {
	return &FakeDigital{Samples: samples}
}

// ReadLines returns the next scripted sample.
func (f *FakeDigital) ReadLines() ([]bool, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	out := make([]bool, len(sample))
	copy(out, sample)
	return out, nil
}

// Close marks the reader as closed.
func (f *FakeDigital) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the reader to the beginning of its samples.
func (f *FakeDigital) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeADC is a test double that returns scripted conversions.
type FakeADC struct {
	// Samples contains scripted raw readings. The last one repeats once
	// exhausted.
	Samples []int

	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Sample()
	ReadError error
}

// NewFakeADC creates a FakeADC with the given samples.
func NewFakeADC(samples []int) *FakeADC {
	return &FakeADC{Samples: samples}
}

// Sample returns the next scripted reading.
func (f *FakeADC) Sample() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the sampler as closed.
func (f *FakeADC) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the sampler to the beginning of its samples.
func (f *FakeADC) Reset() {
	f.index = 0
	f.Closed = false
}
