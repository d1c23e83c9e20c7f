// Package browser drives a Chrome-family browser over the DevTools protocol:
// it opens tabs for the automation, evaluates page scripts and dispatches
// native input.
package browser

const (
	// DefaultCDPPort is the DevTools port used when promptpulse launches Chrome itself.
	DefaultCDPPort = 9232

	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 900
)

// Drivers
const (
	// DriverChromedp launches and controls Chrome through chromedp.
	DriverChromedp = "chromedp"

	// DriverPlaywright launches Chrome with a DevTools port and attaches Playwright to it.
	DriverPlaywright = "playwright"
)
