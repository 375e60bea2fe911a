package web

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-teslacam/pkg/session"
)

// HUDFrameType tags HUD messages on /ws/hud.
const HUDFrameType = "hud"

// HUDFrame is one message on the HUD feed: the tick snapshot plus the
// display values a dashboard shows.
type HUDFrame struct {
	Type string `json:"type"`
	session.Snapshot

	SpeedMph  float64 `json:"speed_mph"`
	SpeedKph  float64 `json:"speed_kph"`
	Gear      string  `json:"gear,omitempty"`
	Autopilot string  `json:"autopilot,omitempty"`
	Clock     string  `json:"clock"`
}

// NewHUDFrame derives the display values from a snapshot.
func NewHUDFrame(snap session.Snapshot) HUDFrame {
	f := HUDFrame{
		Type:     HUDFrameType,
		Snapshot: snap,
		Clock:    FormatClock(snap.Time) + " / " + FormatClock(snap.Duration),
	}
	if s := snap.Sample; s != nil {
		if s.HasSpeed {
			f.SpeedMph = math.Round(s.SpeedMph())
			f.SpeedKph = math.Round(s.SpeedKph())
		}
		f.Gear = s.Gear.Letter()
		f.Autopilot = s.Autopilot.String()
	}
	return f
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
