// Package depot reads the current public build of an app by running the
// DepotDownloader command-line tool with -listdepots.
package depot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

var (
	// ErrMissingCredentials is returned when no storefront login is configured.
	ErrMissingCredentials = errors.New("STEAM_USERNAME and STEAM_PASSWORD must be set")
	// ErrNoBuild is returned when the tool output has no buildid line.
	ErrNoBuild = errors.New("no buildid in depot listing")
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Credentials is the storefront login the tool authenticates with.
type Credentials struct {
	Username string
	Password string
}

// Option configures a Lister.
type Option func(*Lister)

// WithRunner replaces the command runner (useful for testing).
func WithRunner(run Runner) Option {
	return func(l *Lister) {
		if run != nil {
			l.run = run
		}
	}
}

// WithCommand sets the runtime binary and the tool assembly path.
func WithCommand(binary, assembly string) Option {
	return func(l *Lister) {
		if binary != "" {
			l.binary = binary
		}
		if assembly != "" {
			l.assembly = assembly
		}
	}
}

// Lister is a build source backed by DepotDownloader.
type Lister struct {
	creds    Credentials
	binary   string
	assembly string
	run      Runner
}

// NewLister creates a Lister that logs in with creds.
func NewLister(creds Credentials, opts ...Option) *Lister {
	l := &Lister{
		creds:    creds,
		binary:   "dotnet",
		assembly: "depotdownloader/DepotDownloader.dll",
		run:      execRunner,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Latest lists the depots of appID and returns the reported build. The
// tool does not report an update time, so UpdatedAt stays zero.
func (l *Lister) Latest(ctx context.Context, appID string) (catalog.Build, error) {
	if l.creds.Username == "" || l.creds.Password == "" {
		return catalog.Build{}, ErrMissingCredentials
	}

	args := []string{
		l.assembly,
		"-app", appID,
		"-username", l.creds.Username,
		"-password", l.creds.Password,
		"-listdepots",
	}
	out, err := l.run(ctx, l.binary, args...)
	if err != nil {
		return catalog.Build{}, fmt.Errorf("depot listing for app %s failed: %w", appID, err)
	}

	buildID, err := ParseListing(out)
	if err != nil {
		return catalog.Build{}, fmt.Errorf("app %s: %w", appID, err)
	}
	return catalog.Build{AppID: appID, BuildID: buildID}, nil
}

// ParseListing returns the value of the first line mentioning buildid,
// taken after its last colon.
func ParseListing(out []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(strings.ToLower(line), "buildid") {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		if id := strings.TrimSpace(line[idx+1:]); id != "" {
			return id, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read depot listing: %w", err)
	}
	return "", ErrNoBuild
}
