package golang

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emenda-labs/breakcheck/core/changespec"
	"github.com/emenda-labs/breakcheck/core/driver"
	"github.com/emenda-labs/breakcheck/drivers/golang/astdiff"
	"github.com/emenda-labs/breakcheck/drivers/golang/symbols"
	"github.com/emenda-labs/breakcheck/pkg/apicache"
	"github.com/emenda-labs/breakcheck/pkg/archive"
	"github.com/emenda-labs/breakcheck/pkg/gomod"
	"github.com/emenda-labs/breakcheck/pkg/goproxy"
)

// Name identifies the Go driver in analyzer configurations.
const Name = "go"

var (
	_ driver.LanguageDriver  = (*Driver)(nil)
	_ driver.VersionResolver = (*Driver)(nil)
)

// Driver implements driver.LanguageDriver for Go modules.
type Driver struct {
	proxyClient *goproxy.Client
	cache       *apicache.Cache
	logger      *zap.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithProxyClient sets the module proxy client.
func WithProxyClient(c *goproxy.Client) Option {
	return func(d *Driver) { d.proxyClient = c }
}

// WithCache stores the parsed exports of published versions in c.
func WithCache(c *apicache.Cache) Option {
	return func(d *Driver) { d.cache = c }
}

// WithLogger sets the driver logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// NewDriver creates a Driver. Without options it uses a default
// goproxy.Client and no cache.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.proxyClient == nil {
		d.proxyClient = goproxy.NewClient(goproxy.WithLogger(d.logger))
	}
	return d
}

func (d *Driver) Name() string { return Name }

// FetchSource downloads the module zip from the proxy and extracts it to a temp directory.
func (d *Driver) FetchSource(ctx context.Context, module, version string) (string, func(), error) {
	data, err := d.proxyClient.DownloadZip(ctx, module, version)
	if err != nil {
		return "", nil, fmt.Errorf("downloading zip for %s@%s: %w", module, version, err)
	}

	dir, cleanup, err := archive.ExtractZip(data, version)
	if err != nil {
		return "", nil, fmt.Errorf("extracting zip for %s@%s: %w", module, version, err)
	}

	d.logger.Debug("fetched module source",
		zap.String("module", module),
		zap.String("version", version),
		zap.String("dir", dir))
	return dir, cleanup, nil
}

// PreviousVersion returns the highest release of module below current.
func (d *Driver) PreviousVersion(ctx context.Context, module, current string) (string, error) {
	return d.proxyClient.PreviousVersion(ctx, module, current)
}

// ComputeChanges diffs two unpacked Go module versions. Both trees must
// declare the same module path. An empty version marks a working tree.
func (d *Driver) ComputeChanges(ctx context.Context, oldPath, newPath, oldVersion, newVersion string) (changespec.ChangeSpec, error) {
	oldRoot, module, err := moduleRoot(oldPath, oldVersion)
	if err != nil {
		return changespec.ChangeSpec{}, err
	}
	newRoot, newModule, err := moduleRoot(newPath, newVersion)
	if err != nil {
		return changespec.ChangeSpec{}, err
	}
	if module != newModule {
		return changespec.ChangeSpec{}, fmt.Errorf("module mismatch: old=%s new=%s", module, newModule)
	}

	var old, new symbols.Symbols
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		old, err = d.exports(gctx, oldRoot, module, oldVersion)
		return err
	})
	g.Go(func() (err error) {
		new, err = d.exports(gctx, newRoot, module, newVersion)
		return err
	})
	if err := g.Wait(); err != nil {
		return changespec.ChangeSpec{}, err
	}

	return changespec.ChangeSpec{
		Module:     module,
		OldVersion: oldVersion,
		NewVersion: newVersion,
		Changes:    astdiff.DiffExports(old, new),
	}, nil
}

func moduleRoot(dir, version string) (root, module string, err error) {
	root, err = astdiff.FindSourceRoot(dir)
	if err != nil {
		return "", "", fmt.Errorf("finding module root of %s: %w", displayVersion(version), err)
	}
	module, err = gomod.FindModulePath(root)
	if err != nil {
		return "", "", fmt.Errorf("reading module path of %s: %w", displayVersion(version), err)
	}
	return root, module, nil
}

// exports parses the exports under root. Published versions are served
// from and stored in the cache.
func (d *Driver) exports(ctx context.Context, root, module, version string) (symbols.Symbols, error) {
	key := apicache.Key(module, version)
	if version != "" {
		var cached symbols.Symbols
		hit, err := d.cache.Get(key, &cached)
		if err != nil {
			d.logger.Warn("ignoring unreadable API cache entry", zap.String("key", key), zap.Error(err))
		}
		if hit {
			d.logger.Debug("API cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	syms, err := astdiff.ParseExports(ctx, root, module, d.logger)
	if err != nil {
		return symbols.Symbols{}, fmt.Errorf("parsing exports of %s: %w", displayVersion(version), err)
	}
	syms.Version = version

	if version != "" {
		if err := d.cache.Put(key, syms); err != nil {
			d.logger.Warn("storing API cache entry", zap.String("key", key), zap.Error(err))
		}
	}
	return syms, nil
}

func displayVersion(version string) string {
	if version == "" {
		return "working tree"
	}
	return version
}
