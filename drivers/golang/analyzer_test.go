package golang

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/check"
	"github.com/emenda-labs/breakcheck/core/revconfig"
)

var fixtureIdentity = breaks.ModuleIdentity(fixtureModule)

func fixtureRequest(t *testing.T, f revconfig.Fragment) check.Request {
	t.Helper()
	config, err := revconfig.Encode(f)
	require.NoError(t, err)
	return check.Request{
		Config: config,
		Old:    check.APIArchives{Version: "v1.0.0", Archives: []string{fixture("old")}},
		New:    check.APIArchives{Archives: []string{fixture("new")}},
	}
}

func fixtureBreaks(t *testing.T) map[string]breaks.AcceptedBreak {
	t.Helper()
	spec, err := NewDriver().ComputeChanges(context.Background(), fixture("old"), fixture("new"), "v1.0.0", "")
	require.NoError(t, err)
	out := make(map[string]breaks.AcceptedBreak, len(spec.Changes))
	for _, c := range spec.Changes {
		out[c.Package+"."+c.Symbol] = c.Break()
	}
	return out
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(NewDriver(), zap.NewNop())
}

func TestAnalyze_ReportsUnacceptedBreaks(t *testing.T) {
	res, err := newTestAnalyzer().Analyze(context.Background(), fixtureRequest(t, revconfig.Defaults().WithDriver(Name)))
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Len(t, res.Unaccepted, 16)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "github.com/acme:testmod has 16 unaccepted API break(s) against v1.0.0", res.Messages[0])
	assert.Contains(t, res.Report, "16 unaccepted break(s):")
	assert.Contains(t, res.Report, "go.signature_changed")
	for _, f := range res.Unaccepted {
		assert.Equal(t, fixtureIdentity, f.Module)
	}
}

func TestAnalyze_IgnoredBreaksAreAccepted(t *testing.T) {
	all := fixtureBreaks(t)
	doWork := all[fixtureModule+".DoWork"]

	cfg, err := revconfig.Defaults().WithDriver(Name).WithIgnored(fixtureIdentity, "callers pass nil opts", doWork)
	require.NoError(t, err)

	res, err := newTestAnalyzer().Analyze(context.Background(), fixtureRequest(t, cfg))
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Len(t, res.Unaccepted, 15)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, doWork, res.Accepted[0].Break)
	assert.Equal(t, "callers pass nil opts", res.Accepted[0].Justification)
	assert.Contains(t, res.Report, "justification: callers pass nil opts")
}

func TestAnalyze_PassesWhenEverythingAccepted(t *testing.T) {
	var accepted []breaks.AcceptedBreak
	for _, b := range fixtureBreaks(t) {
		accepted = append(accepted, b)
	}
	cfg, err := revconfig.Defaults().WithDriver(Name).WithIgnored(fixtureIdentity, "v2 cleanup", accepted...)
	require.NoError(t, err)

	res, err := newTestAnalyzer().Analyze(context.Background(), fixtureRequest(t, cfg))
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Empty(t, res.Unaccepted)
	assert.Len(t, res.Accepted, 16)
	assert.Empty(t, res.Messages)
	assert.Contains(t, res.Report, "No unaccepted breaks.")
}

func TestAnalyze_PackageFilter(t *testing.T) {
	cfg, err := revconfig.Defaults().WithDriver(Name).WithFilter(fixtureIdentity, nil, []string{`/sub$`})
	require.NoError(t, err)

	res, err := newTestAnalyzer().Analyze(context.Background(), fixtureRequest(t, cfg))
	require.NoError(t, err)

	assert.Len(t, res.Unaccepted, 13)
	for _, f := range res.Unaccepted {
		assert.NotContains(t, f.Break.OldElement, "/sub.")
	}
}

func TestAnalyze_WritesReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "api.txt")
	cfg := revconfig.Defaults().WithDriver(Name).WithReporter(out, "")

	res, err := newTestAnalyzer().Analyze(context.Background(), fixtureRequest(t, cfg))
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Report, string(data))
}

func TestAnalyze_RejectsOtherDriver(t *testing.T) {
	_, err := newTestAnalyzer().Analyze(context.Background(), fixtureRequest(t, revconfig.Defaults().WithDriver("java")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `driver "java"`)
}

func TestAnalyze_RequiresOneArchivePerSide(t *testing.T) {
	req := fixtureRequest(t, revconfig.Defaults())
	req.New.Archives = append(req.New.Archives, fixture("old"))

	_, err := newTestAnalyzer().Analyze(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new API: want exactly one source directory, got 2")
}

func TestAnalyze_ThroughRunner(t *testing.T) {
	all := fixtureBreaks(t)
	var accepted []breaks.AcceptedBreak
	for _, b := range all {
		accepted = append(accepted, b)
	}
	set, err := breaks.NewPerModule(map[breaks.GroupAndName]breaks.Set[breaks.AcceptedBreak]{
		fixtureIdentity: breaks.NewSet(accepted...),
	})
	require.NoError(t, err)
	coll, err := breaks.NewBreakCollection("v2 cleanup", breaks.Version("1.0.0"), set)
	require.NoError(t, err)

	runner := check.NewRunner(newTestAnalyzer(), zap.NewNop())
	res, err := runner.Run(context.Background(), check.Input{
		Module:   fixtureIdentity,
		Driver:   Name,
		Accepted: []breaks.BreakCollection{coll},
		Old:      check.APIArchives{Version: "v1.0.0", Archives: []string{fixture("old")}},
		New:      check.APIArchives{Archives: []string{fixture("new")}},
	})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Len(t, res.Accepted, 16)
}
