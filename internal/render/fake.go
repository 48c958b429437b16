package render

import "image"

// FakePanel records what was shown.
type FakePanel struct {
	Inits  int
	Sleeps int
	Shown  []*image.Gray
	Closed bool

	// ShowError, if set, will be returned by Show.
	ShowError error
	// SleepError, if set, will be returned by Sleep.
	SleepError error
}

func (f *FakePanel) Init() error { f.Inits++; return nil }

func (f *FakePanel) Show(img *image.Gray) error {
	if f.ShowError != nil {
		return f.ShowError
	}
	f.Shown = append(f.Shown, img)
	return nil
}

func (f *FakePanel) Sleep() error {
	if f.SleepError != nil {
		return f.SleepError
	}
	f.Sleeps++
	return nil
}
func (f *FakePanel) Close() error { f.Closed = true; return nil }

// ErrorScreen is one recorded DrawError call.
type ErrorScreen struct {
	Icon  Icon
	Line1 string
	Line2 string
}

// FakeRenderer records draw calls without composing images.
type FakeRenderer struct {
	Weather   []Screen
	Errors    []ErrorScreen
	PowerOffs int

	// Calls records the order of calls: "weather", "error", "poweroff".
	Calls []string
}

func (f *FakeRenderer) DrawWeather(s Screen) error {
	f.Weather = append(f.Weather, s)
	f.Calls = append(f.Calls, "weather")
	return nil
}

func (f *FakeRenderer) DrawError(icon Icon, line1, line2 string) error {
	f.Errors = append(f.Errors, ErrorScreen{Icon: icon, Line1: line1, Line2: line2})
	f.Calls = append(f.Calls, "error")
	return nil
}

func (f *FakeRenderer) PowerOff() error {
	f.PowerOffs++
	f.Calls = append(f.Calls, "poweroff")
	return nil
}
