package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gauthierbraillon/gamefeed/internal/display"
	"github.com/gauthierbraillon/gamefeed/internal/ledger"
	"github.com/gauthierbraillon/gamefeed/internal/output"
	"github.com/gauthierbraillon/gamefeed/internal/patches"
)

// PatchesOptions configures a build-tracking run.
type PatchesOptions struct {
	Output string
	// CSVOutput, when set, also receives the updates as appid,buildid,date
	// rows.
	CSVOutput    string
	UpdateLedger bool
}

// PatchesResult is the outcome of a build-tracking run.
type PatchesResult struct {
	Tracked int
	Report  patches.Report
}

// Rows renders the updated apps for the terminal summary.
func (r PatchesResult) Rows() []display.Row {
	rows := make([]display.Row, 0, len(r.Report.Updates))
	for _, u := range r.Report.Updates {
		name := "app " + u.AppID
		if u.Entry.PatchNote != nil {
			name = u.Entry.PatchNote.Title
		}
		previous := u.Previous
		if previous == "" {
			previous = "none"
		}
		rows = append(rows, display.Row{
			Name:     name,
			StoreID:  u.AppID,
			Released: u.Build.UpdatedAt,
			Detail:   fmt.Sprintf("%s -> %s", previous, u.Build.BuildID),
			URL:      u.Entry.SteamDBURL,
		})
	}
	return rows
}

// Patches compares tracked apps against the build ledger.
type Patches struct {
	store   *ledger.Store
	tracker *patches.Tracker
	opts    PatchesOptions
	logger  *slog.Logger
}

// NewPatches creates a build-tracking run over the ledger in store.
func NewPatches(store *ledger.Store, tracker *patches.Tracker, opts PatchesOptions, logger *slog.Logger) *Patches {
	if logger == nil {
		logger = slog.Default()
	}
	return &Patches{store: store, tracker: tracker, opts: opts, logger: logger}
}

// Run executes the pipeline. The ledger file is only rewritten when
// UpdateLedger is set.
func (p *Patches) Run(ctx context.Context) (PatchesResult, error) {
	var result PatchesResult

	l, err := p.store.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load build ledger %s: %w", p.store.Path(), err)
	}
	result.Tracked = l.Len()

	report, err := p.tracker.Check(ctx, l)
	if err != nil {
		return result, err
	}
	result.Report = report

	if err := output.WriteJSON(p.opts.Output, report.Entries()); err != nil {
		return result, err
	}
	if p.opts.CSVOutput != "" {
		rows := make([][]string, 0, len(report.Updates))
		for _, u := range report.Updates {
			rows = append(rows, []string{u.AppID, u.Build.BuildID, u.Entry.Date})
		}
		if err := output.WriteCSV(p.opts.CSVOutput, ledger.Header, rows); err != nil {
			return result, err
		}
	}

	if p.opts.UpdateLedger && len(report.Updates) > 0 {
		err := p.store.Update(ctx, func(current *ledger.Ledger) error {
			report.Apply(current)
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("failed to update build ledger: %w", err)
		}
	}

	p.logger.Info("build check complete",
		"tracked", result.Tracked,
		"updated", len(report.Updates),
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"output", p.opts.Output,
		"ledger", p.store.Path(),
		"ledger_updated", p.opts.UpdateLedger && len(report.Updates) > 0,
	)
	return result, nil
}
