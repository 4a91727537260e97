// Package page enumerates the display's UI pages.
package page

import (
	"encoding/json"
	"fmt"
)

// ActivePage identifies a UI page.
type ActivePage int

const (
	Sensor ActivePage = iota
	Home
	Image
	FullTime
	Setting
	FullWeather
	About
	None
)

var names = [...]string{
	Sensor:      "Sensor",
	Home:        "Home",
	Image:       "Image",
	FullTime:    "FullTime",
	Setting:     "Setting",
	FullWeather: "FullWeather",
	About:       "About",
	None:        "None",
}

// All lists every real page, None excluded.
var All = []ActivePage{Sensor, Home, Image, FullTime, Setting, FullWeather, About}

func (p ActivePage) String() string {
	if p < 0 || int(p) >= len(names) {
		return fmt.Sprintf("ActivePage(%d)", int(p))
	}
	return names[p]
}

// Parse returns the page with the given name.
func Parse(s string) (ActivePage, error) {
	for i, n := range names {
		if n == s {
			return ActivePage(i), nil
		}
	}
	return None, fmt.Errorf("unknown page %q", s)
}

// NeedsPeriodicRefresh reports whether the page shows time or sensor data
// and must be redrawn on every refresh, even without a page change.
func (p ActivePage) NeedsPeriodicRefresh() bool {
	switch p {
	case Home, Sensor:
		return true
	default:
		return false
	}
}

// FromEvent maps a key gesture to a page. Keys are numbered left to right.
//
//	        key 0     key 1    key 2
//	single  Sensor    Home     Image
//	double  FullTime  Setting  FullWeather
//	triple  -         About    -
func FromEvent(keyIndex, clicks int) ActivePage {
	switch {
	case clicks == 1 && keyIndex == 0:
		return Sensor
	case clicks == 1 && keyIndex == 1:
		return Home
	case clicks == 1 && keyIndex == 2:
		return Image
	case clicks == 2 && keyIndex == 0:
		return FullTime
	case clicks == 2 && keyIndex == 1:
		return Setting
	case clicks == 2 && keyIndex == 2:
		return FullWeather
	case clicks == 3 && keyIndex == 1:
		return About
	default:
		return None
	}
}

// MarshalJSON encodes the page by name.
func (p ActivePage) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a page name. Unknown names decode to Home so an
// old config never leaves the device on a blank page.
func (p *ActivePage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("page: %w", err)
	}
	v, err := Parse(s)
	if err != nil || v == None {
		v = Home
	}
	*p = v
	return nil
}
