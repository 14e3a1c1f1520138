// Package app implements the breakcheck commands on top of the check
// runner, the accepted-breaks document and a language backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/core/breakfile"
	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/check"
	"github.com/emenda-labs/breakcheck/core/cli"
	"github.com/emenda-labs/breakcheck/core/driver"
	"github.com/emenda-labs/breakcheck/core/revconfig"
	"github.com/emenda-labs/breakcheck/core/settings"
	"github.com/emenda-labs/breakcheck/pkg/gomod"
	"github.com/emenda-labs/breakcheck/pkg/logging"
)

// Backend is the language support a run needs.
type Backend struct {
	Driver   driver.LanguageDriver
	Resolver driver.VersionResolver
	Analyzer check.Analyzer
}

// BackendFunc builds the backend of one command invocation.
type BackendFunc func(logger *zap.Logger) (Backend, error)

// App runs the breakcheck commands.
type App struct {
	out        io.Writer
	newBackend BackendFunc
	newLogger  func(logging.Options) (*zap.Logger, error)
}

// Option configures an App.
type Option func(*App)

// WithOutput sets where command output is written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithLoggerFactory replaces logging.New.
func WithLoggerFactory(f func(logging.Options) (*zap.Logger, error)) Option {
	return func(a *App) { a.newLogger = f }
}

// New returns an App using newBackend for language support.
func New(newBackend BackendFunc, opts ...Option) *App {
	a := &App{out: os.Stdout, newBackend: newBackend, newLogger: logging.New}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// target is the module a command operates on.
type target struct {
	root       string
	modulePath string
	module     breaks.GroupAndName
	project    settings.Project
	breaksPath string
	src        []byte
	doc        breakfile.Document
}

// session holds the per-invocation logger and backend.
type session struct {
	logger  *zap.Logger
	backend Backend
}

func (a *App) start(g cli.GlobalOptions) (*session, error) {
	if g.NoColor {
		color.NoColor = true
	}
	logger, err := a.newLogger(logging.Options{Verbose: g.Verbose, JSON: g.JSON})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	backend, err := a.newBackend(logger)
	if err != nil {
		return nil, err
	}
	return &session{logger: logger, backend: backend}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// load finds the module containing dir, its settings and its accepted
// breaks. moduleFlag, when set, must name the module declared in go.mod:
// analyses only ever look up breaks under that identity.
func (s *session) load(dir, moduleFlag string) (*target, error) {
	root, err := gomod.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	modulePath, err := gomod.FindModulePath(root)
	if err != nil {
		return nil, err
	}
	module := breaks.ModuleIdentity(modulePath)
	if moduleFlag != "" {
		requested, err := breaks.ParseGroupAndName(moduleFlag)
		if err != nil {
			return nil, err
		}
		if requested != module {
			return nil, fmt.Errorf("module %s does not match %s declared in %s", requested, module, filepath.Join(root, "go.mod"))
		}
	}

	project, err := settings.Load(root)
	if err != nil {
		return nil, err
	}
	t := &target{
		root:       root,
		modulePath: modulePath,
		module:     module,
		project:    project,
		breaksPath: project.AcceptedBreaksPath(),
	}
	if t.src, t.doc, err = breakfile.ReadFile(t.breaksPath); err != nil {
		return nil, err
	}
	if t.doc.Migrated {
		s.logger.Warn("accepted breaks use the deprecated schema; run `breakcheck migrate` to upgrade the file",
			zap.String("path", t.breaksPath))
	}

	s.logger.Debug("loaded module",
		zap.String("root", root),
		zap.String("module", modulePath),
		zap.Stringer("identity", module),
		zap.String("settings", project.Path),
		zap.String("acceptedBreaks", t.breaksPath))
	return t, nil
}

// baseline returns the release the working tree is compared against: the
// explicit against version, else a recorded override, else the previous
// published release.
func (s *session) baseline(ctx context.Context, t *target, version, against string) (string, error) {
	if against != "" {
		return against, nil
	}
	if version != "" {
		if v, ok := t.doc.VersionOverride(t.module, breaks.Version(version)); ok {
			s.logger.Info("using version override",
				zap.Stringer("module", t.module),
				zap.String("version", version),
				zap.Stringer("replacement", v))
			return v.String(), nil
		}
	}
	prev, err := s.backend.Resolver.PreviousVersion(ctx, t.modulePath, version)
	if err != nil {
		return "", &check.ResolveError{Module: t.module, Version: version, Errs: []error{err}}
	}
	return prev, nil
}

// analyze compares the working tree of t against its baseline. The result
// is returned alongside an *check.AnalysisFailedError when breaks are
// unaccepted.
func (s *session) analyze(ctx context.Context, t *target, opts cli.CheckOptions) (string, check.Result, error) {
	baseline, err := s.baseline(ctx, t, opts.Version, opts.Against)
	if err != nil {
		return "", check.Result{}, err
	}

	oldDir, cleanup, err := s.backend.Driver.FetchSource(ctx, t.modulePath, baseline)
	if err != nil {
		return "", check.Result{}, &check.ResolveError{Module: t.module, Version: opts.Version, Errs: []error{err}}
	}
	defer cleanup()

	settingsFragment, err := t.project.Fragment()
	if err != nil {
		return "", check.Result{}, err
	}
	flags := flagFragment(opts)

	runner := check.NewRunner(s.backend.Analyzer, s.logger)
	res, err := runner.Run(ctx, check.Input{
		Module:    t.module,
		Driver:    s.backend.Driver.Name(),
		Accepted:  t.doc.AcceptedBreaks,
		Fragments: []revconfig.Fragment{settingsFragment, flags},
		Old:       check.APIArchives{Version: baseline, Archives: []string{oldDir}},
		New:       check.APIArchives{Version: opts.Version, Archives: []string{t.root}},
	})
	return baseline, res, err
}

// Check runs the API check of the module containing opts.Global.Dir.
func (a *App) Check(ctx context.Context, opts cli.CheckOptions) error {
	s, err := a.start(opts.Global)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.load(opts.Global.Dir, "")
	if err != nil {
		return err
	}
	_, res, err := s.analyze(ctx, t, opts)

	var failed *check.AnalysisFailedError
	if err == nil || (errors.As(err, &failed) && failed.Result.Report != "") {
		check.PrintSummary(a.out, t.module, res)
	}
	return err
}

// flagFragment holds the settings given on the command line, which take
// precedence over every other fragment.
func flagFragment(opts cli.CheckOptions) revconfig.Fragment {
	return revconfig.New("flags").WithReporter(opts.ReportOutput, opts.ReportTemplate)
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
