package astdiff

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/drivers/golang/symbols"
)

// ParseExports walks the module source at rootDir and collects every
// exported symbol of its importable packages. module is the module import
// path. Files that fail to parse are skipped with a warning.
func ParseExports(ctx context.Context, rootDir, module string, logger *zap.Logger) (symbols.Symbols, error) {
	sourceRoot, err := FindSourceRoot(rootDir)
	if err != nil {
		return symbols.Symbols{}, fmt.Errorf("finding source root in %s: %w", rootDir, err)
	}

	fset := token.NewFileSet()
	var entries []symbols.Symbol

	walkErr := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if path != sourceRoot && skipDir(path, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		file, parseErr := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if parseErr != nil {
			logger.Warn("skipping unparsable file", zap.String("path", path), zap.Error(parseErr))
			return nil
		}
		if file.Name.Name == "main" {
			return nil
		}

		c := collector{pkg: packagePath(sourceRoot, path, module)}
		c.file(file)
		entries = append(entries, c.entries...)
		return nil
	})
	if walkErr != nil {
		return symbols.Symbols{}, fmt.Errorf("walking source at %s: %w", sourceRoot, walkErr)
	}

	return symbols.Symbols{Module: module, Entries: entries}, nil
}

// skipDir reports whether a directory holds no public API of the module:
// internal, testdata and vendor trees, hidden directories, and nested
// modules.
func skipDir(path, base string) bool {
	switch {
	case base == "internal", base == "testdata", base == "vendor":
		return true
	case strings.HasPrefix(base, "_"), strings.HasPrefix(base, "."):
		return true
	}
	return hasGoMod(path)
}

// collector gathers the exported symbols of one file.
type collector struct {
	pkg     string
	entries []symbols.Symbol
}

func (c *collector) add(kind symbols.SymbolKind, name, signature string) {
	c.entries = append(c.entries, symbols.Symbol{Kind: kind, Name: name, Package: c.pkg, Signature: signature})
}

func (c *collector) file(f *ast.File) {
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			c.funcDecl(d)
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				c.typeDecl(d)
			case token.CONST:
				c.valueDecl(d, symbols.SymbolConst)
			case token.VAR:
				c.valueDecl(d, symbols.SymbolVar)
			}
		}
	}
}

// funcDecl records a function, or a method on an exported receiver.
func (c *collector) funcDecl(fd *ast.FuncDecl) {
	if fd.Name == nil || !fd.Name.IsExported() {
		return
	}
	sig := funcSignatureOf(fd.Type).String()
	if fd.Recv == nil {
		c.add(symbols.SymbolFunc, fd.Name.Name, sig)
		return
	}

	recv := receiverTypeName(fd.Recv)
	if recv == "" || !ast.IsExported(recv) {
		return
	}
	c.entries = append(c.entries, symbols.Symbol{
		Kind:      symbols.SymbolMethod,
		Name:      recv + "." + fd.Name.Name,
		Package:   c.pkg,
		Receiver:  recv,
		Signature: sig,
	})
}

// typeDecl records exported types and the exported fields of structs.
func (c *collector) typeDecl(gd *ast.GenDecl) {
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok || !ts.Name.IsExported() {
			continue
		}
		kind := symbols.SymbolType
		if _, ok := ts.Type.(*ast.InterfaceType); ok {
			kind = symbols.SymbolInterface
		}
		c.add(kind, ts.Name.Name, typeSignature(ts))

		st, ok := ts.Type.(*ast.StructType)
		if !ok || st.Fields == nil {
			continue
		}
		for _, field := range st.Fields.List {
			typ := renderTypeExpr(field.Type)
			if len(field.Names) == 0 {
				if emb := baseTypeName(field.Type); emb != "" && ast.IsExported(emb) {
					c.add(symbols.SymbolField, ts.Name.Name+"."+emb, typ)
				}
				continue
			}
			for _, name := range field.Names {
				if name.IsExported() {
					c.add(symbols.SymbolField, ts.Name.Name+"."+name.Name, typ)
				}
			}
		}
	}
}

func (c *collector) valueDecl(gd *ast.GenDecl, kind symbols.SymbolKind) {
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for _, name := range vs.Names {
			if name.IsExported() {
				c.add(kind, name.Name, valueType(vs))
			}
		}
	}
}

// packagePath derives the import path of the package holding filePath.
func packagePath(sourceRoot, filePath, module string) string {
	rel, err := filepath.Rel(sourceRoot, filepath.Dir(filePath))
	if err != nil || rel == "." || rel == "" {
		return module
	}
	return module + "/" + filepath.ToSlash(rel)
}

// baseTypeName strips pointers, type arguments and package qualifiers:
// *Client -> "Client", Foo[T] -> "Foo", *pkg.Bar[T, U] -> "Bar".
func baseTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch e := expr.(type) {
	case *ast.IndexExpr:
		expr = e.X
	case *ast.IndexListExpr:
		expr = e.X
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	}
	return ""
}

func receiverTypeName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	return baseTypeName(recv.List[0].Type)
}

// FindSourceRoot returns dir if it holds a go.mod, otherwise the first
// directory at most two levels below it that does. Module zips from the
// proxy unpack to <dir>/<module>@<version>/.
func FindSourceRoot(dir string) (string, error) {
	if hasGoMod(dir) {
		return dir, nil
	}

	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		if strings.Count(filepath.ToSlash(rel), "/") > 2 {
			return fs.SkipDir
		}
		if hasGoMod(path) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching for go.mod: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("no go.mod found under %s", dir)
	}
	return found, nil
}

func hasGoMod(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "go.mod"))
	return err == nil && !info.IsDir()
}
