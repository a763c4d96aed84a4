// Package browser opens shortlisted store pages in the default browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher starts a detached process.
type Launcher func(name string, args ...string) error

func startDetached(name string, args ...string) error {
	return exec.Command(name, args...).Start() // #nosec G204 -- URL validated by Open
}

// Opener opens web pages with the platform's URL handler.
type Opener struct {
	goos   string
	launch Launcher
}

// New returns an Opener for the running platform.
func New() *Opener {
	return &Opener{goos: runtime.GOOS, launch: startDetached}
}

// NewFor returns an Opener for goos that starts processes with launch.
func NewFor(goos string, launch Launcher) *Opener {
	return &Opener{goos: goos, launch: launch}
}

// Open validates rawURL and hands it to the platform's URL handler. Only
// absolute http and https URLs are accepted.
func (o *Opener) Open(rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}

	switch o.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return o.launch("xdg-open", rawURL)
	case "darwin":
		return o.launch("open", rawURL)
	case "windows":
		return o.launch("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", o.goos)
	}
}

// Open opens rawURL on the running platform.
func Open(rawURL string) error {
	return New().Open(rawURL)
}

// Validate rejects URLs that are not safe to pass to a shell-adjacent
// opener.
func Validate(rawURL string) error {
	if strings.ContainsAny(rawURL, " \t\r\n\x00`$;|&<>\"'") {
		return fmt.Errorf("invalid URL: %q contains reserved characters", rawURL)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: %q has no host", rawURL)
	}
	return nil
}
