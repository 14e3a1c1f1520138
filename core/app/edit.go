package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/emenda-labs/breakcheck/core/breakfile"
	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/check"
	"github.com/emenda-labs/breakcheck/core/cli"
	"github.com/emenda-labs/breakcheck/pkg/diffview"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	hunkColor    = color.New(color.FgCyan)
)

// Accept records one break as accepted.
func (a *App) Accept(ctx context.Context, opts cli.AcceptOptions) error {
	s, err := a.start(opts.Global)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.load(opts.Global.Dir, opts.Module)
	if err != nil {
		return err
	}

	b := breaks.AcceptedBreak{Code: opts.Code, OldElement: opts.Old, NewElement: opts.New}
	if err := b.Validate(); err != nil {
		return err
	}

	afterVersion := opts.AfterVersion
	if afterVersion == "" {
		if afterVersion, err = s.baseline(ctx, t, opts.Version, ""); err != nil {
			return err
		}
	}

	out, err := breakfile.AddBreaks(t.src, opts.Justification, breaks.Version(afterVersion), t.module, b)
	if err != nil {
		return err
	}
	return a.write(t, out, opts.DryRun)
}

// AcceptAll runs the check and accepts every unaccepted break it reports
// with one justification.
func (a *App) AcceptAll(ctx context.Context, opts cli.AcceptAllOptions) error {
	s, err := a.start(opts.Global)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.load(opts.Global.Dir, "")
	if err != nil {
		return err
	}

	baseline, res, err := s.analyze(ctx, t, opts.CheckOptions)
	if err != nil {
		var failed *check.AnalysisFailedError
		if !errors.As(err, &failed) || failed.Err != nil {
			return err
		}
		res = failed.Result
	}
	if len(res.Unaccepted) == 0 {
		fmt.Fprintf(a.out, "%s: no unaccepted API breaks against %s\n", t.module, baseline)
		return nil
	}

	perModule := make(map[breaks.GroupAndName][]breaks.AcceptedBreak)
	for _, f := range res.Unaccepted {
		perModule[f.Module] = append(perModule[f.Module], f.Break)
	}

	out := t.src
	for _, module := range slices.SortedFunc(maps.Keys(perModule), breaks.GroupAndName.Compare) {
		if out, err = breakfile.AddBreaks(out, opts.Justification, breaks.Version(baseline), module, perModule[module]...); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "accepting %d break(s) of %s after %s\n", len(res.Unaccepted), t.module, baseline)
	return a.write(t, out, opts.DryRun)
}

// Migrate upgrades the accepted-breaks document to the current schema.
func (a *App) Migrate(ctx context.Context, opts cli.MigrateOptions) error {
	s, err := a.start(opts.Global)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.load(opts.Global.Dir, "")
	if err != nil {
		return err
	}
	if t.src == nil {
		fmt.Fprintf(a.out, "no accepted breaks at %s\n", relPath(t.root, t.breaksPath))
		return nil
	}

	out, err := breakfile.Migrate(t.src)
	if err != nil {
		return err
	}
	return a.write(t, out, opts.DryRun)
}

// OverrideVersion records the release a module version is compared against.
func (a *App) OverrideVersion(ctx context.Context, opts cli.OverrideVersionOptions) error {
	s, err := a.start(opts.Global)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.load(opts.Global.Dir, opts.Module)
	if err != nil {
		return err
	}

	out, err := breakfile.SetVersionOverride(t.src, t.module, breaks.Version(opts.Version), breaks.Version(opts.Replacement))
	if err != nil {
		return err
	}
	return a.write(t, out, opts.DryRun)
}

// write stores out as the new accepted-breaks document, or prints the diff
// against the current one on a dry run.
func (a *App) write(t *target, out []byte, dryRun bool) error {
	rel := relPath(t.root, t.breaksPath)
	preview, err := diffview.Unified(rel, string(t.src), string(out))
	if err != nil {
		return err
	}

	if dryRun {
		if preview.Empty() {
			fmt.Fprintf(a.out, "%s is up to date\n", rel)
			return nil
		}
		a.printDiff(preview.Text)
		fmt.Fprintf(a.out, "dry run: %s not written (%s)\n", rel, preview)
		return nil
	}

	if preview.Empty() {
		fmt.Fprintf(a.out, "%s is up to date\n", rel)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.breaksPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(t.breaksPath), err)
	}
	if err := os.WriteFile(t.breaksPath, out, 0o644); err != nil {
		return fmt.Errorf("writing accepted breaks: %w", err)
	}
	fmt.Fprintf(a.out, "updated %s (%s)\n", rel, preview)
	return nil
}

func (a *App) printDiff(text string) {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprintln(a.out, line)
		case strings.HasPrefix(line, "+"):
			addedColor.Fprintln(a.out, line)
		case strings.HasPrefix(line, "-"):
			removedColor.Fprintln(a.out, line)
		case strings.HasPrefix(line, "@@"):
			hunkColor.Fprintln(a.out, line)
		default:
			fmt.Fprintln(a.out, line)
		}
	}
}
