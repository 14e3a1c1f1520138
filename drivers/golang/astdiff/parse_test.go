package astdiff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/drivers/golang/symbols"
)

func testdataDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "testdata")
}

func parseFixture(t *testing.T, name string) symbols.Symbols {
	t.Helper()
	syms, err := ParseExports(context.Background(), filepath.Join(testdataDir(t), name), "github.com/acme/testmod", zap.NewNop())
	if err != nil {
		t.Fatalf("ParseExports(%s): %v", name, err)
	}
	return syms
}

func TestParseExports_OldFixture(t *testing.T) {
	syms := parseFixture(t, "old")

	if syms.Module != "github.com/acme/testmod" {
		t.Errorf("module = %q, want %q", syms.Module, "github.com/acme/testmod")
	}

	byName := make(map[string]symbols.Symbol)
	for _, s := range syms.Entries {
		byName[s.Package+"."+s.Name] = s
	}

	// Verify expected symbols exist.
	expectedSymbols := []struct {
		key  string
		kind symbols.SymbolKind
	}{
		{"github.com/acme/testmod.DoWork", symbols.SymbolFunc},
		{"github.com/acme/testmod.SimpleFunc", symbols.SymbolFunc},
		{"github.com/acme/testmod.HelperFunc", symbols.SymbolFunc},
		{"github.com/acme/testmod.OldOnly", symbols.SymbolFunc},
		{"github.com/acme/testmod.Variadic", symbols.SymbolFunc},
		{"github.com/acme/testmod.Config", symbols.SymbolType},
		{"github.com/acme/testmod.Handler", symbols.SymbolInterface},
		{"github.com/acme/testmod.Token", symbols.SymbolType},
		{"github.com/acme/testmod.Config.Validate", symbols.SymbolMethod},
		{"github.com/acme/testmod.Config.Apply", symbols.SymbolMethod},
		{"github.com/acme/testmod.Config.Host", symbols.SymbolField},
		{"github.com/acme/testmod.Config.Port", symbols.SymbolField},
		{"github.com/acme/testmod.Config.Timeout", symbols.SymbolField},
		{"github.com/acme/testmod.MaxRetries", symbols.SymbolConst},
		{"github.com/acme/testmod.UntypedConst", symbols.SymbolConst},
		{"github.com/acme/testmod.ErrNotFound", symbols.SymbolVar},
		{"github.com/acme/testmod.DefaultConfig", symbols.SymbolVar},
		{"github.com/acme/testmod.ComputeHash", symbols.SymbolVar},
		{"github.com/acme/testmod/sub.SubFunc", symbols.SymbolFunc},
		{"github.com/acme/testmod/sub.SubType", symbols.SymbolType},
		{"github.com/acme/testmod/sub.SubType.Value", symbols.SymbolField},
	}

	for _, exp := range expectedSymbols {
		sym, ok := byName[exp.key]
		if !ok {
			t.Errorf("missing symbol %s", exp.key)
			continue
		}
		if sym.Kind != exp.kind {
			t.Errorf("symbol %s kind = %q, want %q", exp.key, sym.Kind, exp.kind)
		}
	}

	for _, key := range []string{
		"github.com/acme/testmod.unexportedType",
		"github.com/acme/testmod.unexportedType.Hidden",
		"github.com/acme/testmod.Config.secret",
	} {
		if _, ok := byName[key]; ok {
			t.Errorf("unexported symbol present: %s", key)
		}
	}

	if got := byName["github.com/acme/testmod.Config"].Signature; got != "struct{Host string; Port int; Timeout int}" {
		t.Errorf("Config signature = %q", got)
	}
	if got := byName["github.com/acme/testmod.Config.Apply"].Signature; got != "(string) (bool, error)" {
		t.Errorf("Config.Apply signature = %q", got)
	}
}

func TestParseExports_NewFixture(t *testing.T) {
	syms := parseFixture(t, "new")

	byName := make(map[string]symbols.Symbol)
	for _, s := range syms.Entries {
		byName[s.Package+"."+s.Name] = s
	}

	// Package main should be skipped.
	if _, ok := byName["main.MainFunc"]; ok {
		t.Error("package main symbol should be skipped")
	}

	// ComputeHash should be a func in new (was var in old).
	sym, ok := byName["github.com/acme/testmod.ComputeHash"]
	if !ok {
		t.Fatal("missing ComputeHash in new")
	}
	if sym.Kind != symbols.SymbolFunc {
		t.Errorf("ComputeHash kind = %q, want %q", sym.Kind, symbols.SymbolFunc)
	}

	// Config renamed to Settings.
	if _, ok := byName["github.com/acme/testmod.Config"]; ok {
		t.Error("Config should not exist in new (renamed to Settings)")
	}
	if _, ok := byName["github.com/acme/testmod.Settings"]; !ok {
		t.Error("Settings should exist in new")
	}
}

func TestParseExports_VariadicSignature(t *testing.T) {
	syms := parseFixture(t, "old")

	for _, s := range syms.Entries {
		if s.Name == "Variadic" {
			if s.Signature != "(...string) int" {
				t.Errorf("Variadic signature = %q, want %q", s.Signature, "(...string) int")
			}
			return
		}
	}
	t.Error("Variadic symbol not found")
}

func TestParseExports_MethodReceiver(t *testing.T) {
	syms := parseFixture(t, "old")

	for _, s := range syms.Entries {
		if s.Name == "Config.Validate" {
			if s.Receiver != "Config" {
				t.Errorf("receiver = %q, want %q", s.Receiver, "Config")
			}
			if s.Kind != symbols.SymbolMethod {
				t.Errorf("kind = %q, want %q", s.Kind, symbols.SymbolMethod)
			}
			return
		}
	}
	t.Error("Config.Validate method not found")
}

func TestParseExports_SubPackagePath(t *testing.T) {
	syms := parseFixture(t, "old")

	for _, s := range syms.Entries {
		if s.Name == "SubFunc" {
			if s.Package != "github.com/acme/testmod/sub" {
				t.Errorf("SubFunc package = %q, want %q", s.Package, "github.com/acme/testmod/sub")
			}
			return
		}
	}
	t.Error("SubFunc not found")
}

func TestParseExports_EmptyModule(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "go.mod"), "module github.com/empty/mod\n\ngo 1.21\n"); err != nil {
		t.Fatal(err)
	}

	syms, err := ParseExports(context.Background(), dir, "github.com/empty/mod", zap.NewNop())
	if err != nil {
		t.Fatalf("ParseExports: %v", err)
	}
	if len(syms.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(syms.Entries))
	}
}

func TestParseExports_SkipsNonPublicTrees(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"go.mod":                "module github.com/acme/mod\n",
		"api.go":                "package mod\nfunc Public() {}\n",
		"api_test.go":           "package mod\nfunc TestOnly() {}\n",
		"broken.go":             "package mod\nfunc Broken( {\n",
		"internal/impl/impl.go": "package impl\nfunc InternalFunc() {}\n",
		"_examples/ex/ex.go":    "package ex\nfunc ExampleFunc() {}\n",
		".hidden/h.go":          "package h\nfunc HiddenFunc() {}\n",
		"testdata/fixture/f.go": "package fixture\nfunc FixtureFunc() {}\n",
		"vendor/dep/dep.go":     "package dep\nfunc VendoredFunc() {}\n",
		"cmd/tool/main.go":      "package main\nfunc MainFunc() {}\n",
		"nested/go.mod":         "module github.com/acme/mod/nested\n",
		"nested/nested.go":      "package nested\nfunc NestedFunc() {}\n",
		"client/client.go":      "package client\nfunc New() {}\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := mkdirAll(filepath.Dir(path)); err != nil {
			t.Fatal(err)
		}
		if err := writeFile(path, content); err != nil {
			t.Fatal(err)
		}
	}

	syms, err := ParseExports(context.Background(), dir, "github.com/acme/mod", zap.NewNop())
	if err != nil {
		t.Fatalf("ParseExports: %v", err)
	}

	got := make(map[string]bool)
	for _, s := range syms.Entries {
		got[s.Package+"."+s.Name] = true
	}
	want := map[string]bool{
		"github.com/acme/mod.Public":     true,
		"github.com/acme/mod/client.New": true,
	}
	if len(got) != len(want) {
		t.Errorf("symbols = %v, want %v", got, want)
	}
	for key := range want {
		if !got[key] {
			t.Errorf("missing symbol %s", key)
		}
	}
}

func TestParseExports_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseExports(ctx, filepath.Join(testdataDir(t), "old"), "github.com/acme/testmod", zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFindSourceRoot_DirectGoMod(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "go.mod"), "module test\n"); err != nil {
		t.Fatal(err)
	}
	root, err := FindSourceRoot(dir)
	if err != nil {
		t.Fatalf("FindSourceRoot: %v", err)
	}
	if root != dir {
		t.Errorf("root = %q, want %q", root, dir)
	}
}

func TestFindSourceRoot_NestedGoMod(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "module@v1.0.0")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "go.mod"), "module test\n"); err != nil {
		t.Fatal(err)
	}
	root, err := FindSourceRoot(dir)
	if err != nil {
		t.Fatalf("FindSourceRoot: %v", err)
	}
	if root != nested {
		t.Errorf("root = %q, want %q", root, nested)
	}
}

func TestFindSourceRoot_NoGoMod(t *testing.T) {
	dir := t.TempDir()
	_, err := FindSourceRoot(dir)
	if err == nil {
		t.Error("expected error for missing go.mod")
	}
}

func TestPackagePath(t *testing.T) {
	tests := []struct {
		sourceRoot string
		filePath   string
		module     string
		want       string
	}{
		{"/src", "/src/foo.go", "github.com/acme/mod", "github.com/acme/mod"},
		{"/src", "/src/sub/bar.go", "github.com/acme/mod", "github.com/acme/mod/sub"},
		{"/src", "/src/a/b/c.go", "github.com/acme/mod", "github.com/acme/mod/a/b"},
	}
	for _, tt := range tests {
		got := packagePath(tt.sourceRoot, tt.filePath, tt.module)
		if got != tt.want {
			t.Errorf("packagePath(%q, %q, %q) = %q, want %q",
				tt.sourceRoot, tt.filePath, tt.module, got, tt.want)
		}
	}
}

func TestReceiverTypeName(t *testing.T) {
	// Tested implicitly through ParseExports, but verify the direct function.
	// Since receiverTypeName takes *ast.FieldList, we test through ParseExports.
	syms := parseFixture(t, "old")

	methods := make(map[string]string) // name -> receiver
	for _, s := range syms.Entries {
		if s.Kind == symbols.SymbolMethod {
			methods[s.Name] = s.Receiver
		}
	}

	wantMethods := map[string]string{
		"Config.Validate": "Config",
		"Config.Apply":    "Config",
	}
	for name, wantRecv := range wantMethods {
		gotRecv, ok := methods[name]
		if !ok {
			t.Errorf("method %s not found", name)
			continue
		}
		if gotRecv != wantRecv {
			t.Errorf("method %s receiver = %q, want %q", name, gotRecv, wantRecv)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}
