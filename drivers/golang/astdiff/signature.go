package astdiff

import (
	"fmt"
	"go/ast"
	"slices"
	"strings"
)

// funcSignature holds the rendered type parameters, parameters and results
// of a function type.
type funcSignature struct {
	typeParams []string // "T any"
	params     []string // types only
	results    []string
}

// String renders "[T any](Type1, Type2) (R1, R2)".
func (s funcSignature) String() string {
	var sb strings.Builder
	if len(s.typeParams) > 0 {
		sb.WriteString("[" + strings.Join(s.typeParams, ", ") + "]")
	}
	sb.WriteString("(" + strings.Join(s.params, ", ") + ")")
	switch len(s.results) {
	case 0:
	case 1:
		sb.WriteString(" " + s.results[0])
	default:
		sb.WriteString(" (" + strings.Join(s.results, ", ") + ")")
	}
	return sb.String()
}

// renderTypeExpr converts a type expression to its canonical string form.
func renderTypeExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return renderTypeExpr(e.X) + "." + e.Sel.Name
	case *ast.StarExpr:
		return "*" + renderTypeExpr(e.X)
	case *ast.ArrayType:
		if e.Len != nil {
			return fmt.Sprintf("[%s]%s", renderTypeExpr(e.Len), renderTypeExpr(e.Elt))
		}
		return "[]" + renderTypeExpr(e.Elt)
	case *ast.MapType:
		return "map[" + renderTypeExpr(e.Key) + "]" + renderTypeExpr(e.Value)
	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			return "interface{}"
		}
		return "interface{...}"
	case *ast.FuncType:
		return "func" + funcSignatureOf(e).String()
	case *ast.Ellipsis:
		return "..." + renderTypeExpr(e.Elt)
	case *ast.ChanType:
		switch e.Dir {
		case ast.RECV:
			return "<-chan " + renderTypeExpr(e.Value)
		case ast.SEND:
			return "chan<- " + renderTypeExpr(e.Value)
		default:
			return "chan " + renderTypeExpr(e.Value)
		}
	case *ast.StructType:
		return "struct{...}"
	case *ast.IndexExpr:
		return renderTypeExpr(e.X) + "[" + renderTypeExpr(e.Index) + "]"
	case *ast.IndexListExpr:
		return renderTypeExpr(e.X) + "[" + joinExprs(e.Indices, ", ") + "]"
	case *ast.ParenExpr:
		return "(" + renderTypeExpr(e.X) + ")"
	case *ast.UnaryExpr:
		return e.Op.String() + renderTypeExpr(e.X)
	case *ast.BinaryExpr:
		return renderTypeExpr(e.X) + " " + e.Op.String() + " " + renderTypeExpr(e.Y)
	case *ast.BasicLit:
		return e.Value
	default:
		return "unknown"
	}
}

func joinExprs(exprs []ast.Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, x := range exprs {
		parts[i] = renderTypeExpr(x)
	}
	return strings.Join(parts, sep)
}

// fieldTypes expands a field list into one type string per declared name.
func fieldTypes(list *ast.FieldList) []string {
	if list == nil {
		return nil
	}
	var out []string
	for _, field := range list.List {
		typ := renderTypeExpr(field.Type)
		for range max(1, len(field.Names)) {
			out = append(out, typ)
		}
	}
	return out
}

// typeParams renders "T any" for each type parameter.
func typeParams(list *ast.FieldList) []string {
	if list == nil {
		return nil
	}
	var out []string
	for _, field := range list.List {
		constraint := renderTypeExpr(field.Type)
		for _, name := range field.Names {
			out = append(out, name.Name+" "+constraint)
		}
	}
	return out
}

func funcSignatureOf(ft *ast.FuncType) funcSignature {
	if ft == nil {
		return funcSignature{}
	}
	return funcSignature{
		typeParams: typeParams(ft.TypeParams),
		params:     fieldTypes(ft.Params),
		results:    fieldTypes(ft.Results),
	}
}

// typeSignature renders the declaration of a named type. Structs list
// exported fields in order; interfaces list methods sorted by name.
func typeSignature(spec *ast.TypeSpec) string {
	prefix := ""
	if tp := typeParams(spec.TypeParams); len(tp) > 0 {
		prefix = "[" + strings.Join(tp, ", ") + "] "
	}
	if spec.Assign.IsValid() {
		return prefix + "= " + renderTypeExpr(spec.Type)
	}
	switch t := spec.Type.(type) {
	case *ast.StructType:
		return prefix + structSignature(t)
	case *ast.InterfaceType:
		return prefix + interfaceSignature(t)
	default:
		return prefix + renderTypeExpr(spec.Type)
	}
}

func structSignature(st *ast.StructType) string {
	var fields []string
	if st.Fields != nil {
		for _, field := range st.Fields.List {
			typ := renderTypeExpr(field.Type)
			if len(field.Names) == 0 {
				fields = append(fields, typ)
				continue
			}
			for _, name := range field.Names {
				if name.IsExported() {
					fields = append(fields, name.Name+" "+typ)
				}
			}
		}
	}
	return "struct{" + strings.Join(fields, "; ") + "}"
}

func interfaceSignature(it *ast.InterfaceType) string {
	var entries []string
	if it.Methods != nil {
		for _, m := range it.Methods.List {
			if len(m.Names) == 0 {
				entries = append(entries, renderTypeExpr(m.Type))
				continue
			}
			if ft, ok := m.Type.(*ast.FuncType); ok {
				entries = append(entries, m.Names[0].Name+funcSignatureOf(ft).String())
			}
		}
	}
	slices.Sort(entries)
	return "interface{" + strings.Join(entries, "; ") + "}"
}

// valueType returns the declared type of a const or var spec, empty when
// untyped.
func valueType(spec *ast.ValueSpec) string {
	if spec == nil || spec.Type == nil {
		return ""
	}
	return renderTypeExpr(spec.Type)
}
