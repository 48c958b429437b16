package battery

import "errors"

// FakeReader is a test double that returns scripted voltages.
type FakeReader struct {
	// Samples contains scripted millivolt readings.
	// Each call to ReadMillivolts consumes the next sample.
	Samples []uint32

	index int

	// Reads counts calls to ReadMillivolts.
	Reads int

	// ReadError, if set, will be returned by ReadMillivolts.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...uint32) *FakeReader {
	return &FakeReader{Samples: samples}
}

// ReadMillivolts returns the next scripted sample, repeating the last one
// once exhausted.
func (f *FakeReader) ReadMillivolts() (uint32, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
