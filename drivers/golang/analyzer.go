package golang

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/check"
	"github.com/emenda-labs/breakcheck/core/revconfig"
)

var _ check.Analyzer = (*Analyzer)(nil)

// Analyzer runs API checks of Go modules with a Driver.
type Analyzer struct {
	driver *Driver
	logger *zap.Logger
}

// NewAnalyzer returns an Analyzer backed by d.
func NewAnalyzer(d *Driver, logger *zap.Logger) *Analyzer {
	return &Analyzer{driver: d, logger: logger}
}

// Analyze compares the module trees of req. Each side must name exactly one
// archive: the directory holding the module source. Support archives are
// not needed to read Go exports and are ignored.
func (a *Analyzer) Analyze(ctx context.Context, req check.Request) (check.Result, error) {
	cfg, err := revconfig.Decode("analyzer", req.Config)
	if err != nil {
		return check.Result{}, err
	}
	if cfg.Driver != "" && cfg.Driver != Name {
		return check.Result{}, fmt.Errorf("configuration selects driver %q, want %q", cfg.Driver, Name)
	}

	oldDir, err := singleArchive("old", req.Old)
	if err != nil {
		return check.Result{}, err
	}
	newDir, err := singleArchive("new", req.New)
	if err != nil {
		return check.Result{}, err
	}

	spec, err := a.driver.ComputeChanges(ctx, oldDir, newDir, req.Old.Version, req.New.Version)
	if err != nil {
		return check.Result{}, err
	}
	module := breaks.ModuleIdentity(spec.Module)

	include, err := cfg.PackageFilter(module)
	if err != nil {
		return check.Result{}, err
	}

	var res check.Result
	for _, c := range spec.Changes {
		if !include(c.Package) {
			a.logger.Debug("skipping filtered package", zap.String("package", c.Package), zap.String("symbol", c.Symbol))
			continue
		}
		f := check.Finding{Module: module, Break: c.Break()}
		if ig, ok := cfg.Lookup(module, f.Break); ok {
			f.Justification = ig.Justification
			res.Accepted = append(res.Accepted, f)
			continue
		}
		res.Unaccepted = append(res.Unaccepted, f)
	}

	res.Report, err = check.RenderReport(cfg.Reporter.Template, check.Report{
		Module:     module,
		Old:        req.Old,
		New:        req.New,
		Unaccepted: res.Unaccepted,
		Accepted:   res.Accepted,
	})
	if err != nil {
		return check.Result{}, err
	}
	if out := cfg.Reporter.OutputPath; out != "" {
		if err := check.WriteReport(out, res.Report); err != nil {
			return check.Result{}, err
		}
		a.logger.Info("wrote API report", zap.String("path", out))
	}

	res.Passed = len(res.Unaccepted) == 0
	if !res.Passed {
		res.Messages = []string{
			fmt.Sprintf("%s has %d unaccepted API break(s) against %s", module, len(res.Unaccepted), req.Old.Version),
			res.Report,
		}
	}
	return res, nil
}

func singleArchive(side string, a check.APIArchives) (string, error) {
	if len(a.Archives) != 1 {
		return "", fmt.Errorf("%s API: want exactly one source directory, got %d", side, len(a.Archives))
	}
	return a.Archives[0], nil
}
