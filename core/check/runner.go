package check

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/revconfig"
)

// Input describes one module check.
type Input struct {
	Module breaks.GroupAndName
	// Driver names the analyzer language driver.
	Driver string
	// Accepted is every accepted-break collection of the project. Only the
	// collections whose afterVersion is Old.Version apply.
	Accepted []breaks.BreakCollection
	// Fragments are merged after the defaults and the accepted breaks, in
	// order.
	Fragments []revconfig.Fragment
	Old       APIArchives
	New       APIArchives
}

// Runner checks modules with an Analyzer.
type Runner struct {
	analyzer Analyzer
	logger   *zap.Logger
}

// NewRunner returns a Runner using analyzer.
func NewRunner(analyzer Analyzer, logger *zap.Logger) *Runner {
	return &Runner{analyzer: analyzer, logger: logger}
}

// Config merges the configuration for in and serializes it.
func (r *Runner) Config(in Input) ([]byte, error) {
	accepted, err := revconfig.FromAccepted("accepted-breaks", in.Module, breaks.Version(in.Old.Version), in.Accepted)
	if err != nil {
		return nil, err
	}
	fragments := append([]revconfig.Fragment{revconfig.Defaults().WithDriver(in.Driver), accepted}, in.Fragments...)
	merged, err := revconfig.MergeAll(fragments...)
	if err != nil {
		return nil, fmt.Errorf("merging analyzer configuration for %s: %w", in.Module, err)
	}
	return revconfig.Encode(merged)
}

// Run analyzes in. Unaccepted breaks and analyzer failures are returned as
// an *AnalysisFailedError.
func (r *Runner) Run(ctx context.Context, in Input) (Result, error) {
	config, err := r.Config(in)
	if err != nil {
		return Result{}, err
	}

	r.logger.Info("old API", zap.Stringer("module", in.Module), zap.Stringer("api", in.Old))
	r.logger.Info("new API", zap.Stringer("module", in.Module), zap.Stringer("api", in.New))
	r.logger.Debug("analyzer config", zap.ByteString("config", config))

	res, err := r.analyzer.Analyze(ctx, Request{Config: config, Old: in.Old, New: in.New})
	if err != nil {
		return Result{}, &AnalysisFailedError{
			Module:   in.Module,
			Messages: []string{fmt.Sprintf("analyzing %s: %v", in.Module, err)},
			Err:      err,
		}
	}
	if !res.Passed {
		messages := res.Messages
		if len(messages) == 0 {
			messages = []string{fmt.Sprintf("analysis of %s failed", in.Module)}
		}
		return res, &AnalysisFailedError{Module: in.Module, Messages: messages, Result: res}
	}

	r.logger.Info("API check passed",
		zap.Stringer("module", in.Module),
		zap.Int("accepted", len(res.Accepted)))
	return res, nil
}
