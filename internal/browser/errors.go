package browser

import (
	"fmt"
	"strings"
)

// browserErrorHints maps error patterns to actionable hints
var browserErrorHints = map[string]string{
	"executable file not found": "Install Chrome or set Browser.ExecutablePath",
	"no supported browser":      "Install Chrome or set Browser.ExecutablePath",
	"user data directory":       "Another Chrome may be using the profile; close it or change Browser.UserDataDir",
	"websocket":                 "The browser went away; it will be relaunched on the next run",
	"context deadline":          "The browser did not answer in time",
	"no target":                 "The tab was closed while the run was in progress",
}

func wrapBrowserError(err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	for pattern, hint := range browserErrorHints {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w (hint: %s)", err, hint)
		}
	}
	return err
}
