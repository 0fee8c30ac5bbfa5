package extractor

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"path/filepath"
	"strings"

	"github.com/dshills/codexref/pkg/types"
)

// LanguageGo is the language tag of entities reported by GoExtractor
const LanguageGo = "go"

// builtins are never reported as call targets
var builtins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
}

// GoExtractor extracts functions and methods from Go source using go/ast
type GoExtractor struct{}

// NewGoExtractor creates a new GoExtractor instance
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

// Name identifies the extractor
func (g *GoExtractor) Name() string {
	return LanguageGo
}

// Supports reports whether filePath is a Go source file
func (g *GoExtractor) Supports(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".go")
}

// Extract parses a Go file and reports one entity per function or method.
// A file with syntax errors fails as a whole so that reconciliation keeps
// the previously indexed entities.
func (g *GoExtractor) Extract(ctx context.Context, filePath string, content []byte) ([]types.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	// Parse the file with comments for doc extraction
	file, err := parser.ParseFile(fset, filePath, content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("syntax error: %w", err)
	}

	fx := &fileExtractor{
		fset:     fset,
		file:     file,
		filePath: filePath,
		content:  content,
		imports:  collectImports(file),
		local:    localFunctions(file),
	}
	fx.unused = fx.unusedImports()

	entities := make([]types.Entity, 0)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name == nil {
			continue
		}
		entities = append(entities, fx.extractFunction(fn))
	}
	return entities, nil
}

// importSpec is one import of the file and the name it is referenced by
type importSpec struct {
	path string
	name string
}

// fileExtractor holds per-file state while visiting declarations
type fileExtractor struct {
	fset     *token.FileSet
	file     *ast.File
	filePath string
	content  []byte
	imports  []importSpec
	local    map[string]bool
	unused   []string
}

func collectImports(file *ast.File) []importSpec {
	imports := make([]importSpec, 0, len(file.Imports))
	for _, imp := range file.Imports {
		p := strings.Trim(imp.Path.Value, `"`)
		spec := importSpec{path: p, name: importName(p)}
		// Check for alias
		if imp.Name != nil {
			spec.name = imp.Name.Name
		}
		imports = append(imports, spec)
	}
	return imports
}

// importName guesses the package name of an import path: the last element,
// skipping major version suffixes and gopkg.in style ".vN" suffixes.
func importName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' && isDigits(base[1:]) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(base, ".v"); i > 0 && isDigits(base[i+2:]) {
		base = base[:i]
	}
	return strings.ReplaceAll(base, "-", "_")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// localFunctions lists the plain functions declared in the file
func localFunctions(file *ast.File) map[string]bool {
	local := make(map[string]bool)
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil && fn.Name != nil {
			local[fn.Name.Name] = true
		}
	}
	return local
}

// unusedImports lists imports whose name is never referenced in the file.
// Blank and dot imports are never reported.
func (fx *fileExtractor) unusedImports() []string {
	referenced := make(map[string]bool)
	ast.Inspect(fx.file, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				referenced[id.Name] = true
			}
		}
		return true
	})

	var unused []string
	for _, imp := range fx.imports {
		if imp.name == "_" || imp.name == "." {
			continue
		}
		if !referenced[imp.name] {
			unused = append(unused, imp.path)
		}
	}
	return unused
}

// extractFunction extracts function and method declarations
func (fx *fileExtractor) extractFunction(fn *ast.FuncDecl) types.Entity {
	name := fn.Name.Name
	start := fx.fset.Position(fn.Pos())
	end := fx.fset.Position(fn.End())

	e := types.Entity{
		Name:       name,
		FilePath:   fx.filePath,
		LineNumber: start.Line,
		Language:   LanguageGo,
		Kind:       types.KindFunction,
		Signature:  fx.functionSignature(fn),
		Parameters: fx.parameters(fn.Type.Params),
		ReturnType: fx.fieldListToString(fn.Type.Results),
		Complexity: cyclomaticComplexity(fn),
		Exported:   token.IsExported(name),
	}

	// Determine if this is a method or function
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		e.Receiver = receiverType(fn.Recv.List[0].Type)
	}

	if start.Offset >= 0 && end.Offset <= len(fx.content) && start.Offset < end.Offset {
		e.Body = string(fx.content[start.Offset:end.Offset])
	}

	e.Documentation = docFromComment(fn.Doc)
	e.Purpose = e.Documentation.Summary
	pattern := detectPattern(name, e.Receiver)
	if e.Purpose == "" {
		e.Purpose = describe(name, e.Receiver, pattern)
	}
	e.Context = fx.context(e.Receiver)

	for _, imp := range fx.imports {
		e.Dependencies = append(e.Dependencies, imp.path)
	}
	e.FunctionCalls, e.UsedImports = fx.calls(fn)
	e.UnusedImports = append([]string(nil), fx.unused...)

	e.Extensions = map[string]any{"package": fx.file.Name.Name}
	if pattern != "" {
		e.Extensions["pattern"] = pattern
	}
	return e
}

// context describes where the function lives
func (fx *fileExtractor) context(receiver string) string {
	pkg := fx.file.Name.Name
	if receiver != "" {
		return fmt.Sprintf("method of %s in package %s", receiver, pkg)
	}
	return fmt.Sprintf("function in package %s", pkg)
}

// calls collects outgoing call targets and the imports the body references.
// Calls to functions of the same file are qualified with the file path.
func (fx *fileExtractor) calls(fn *ast.FuncDecl) (targets, used []string) {
	if fn.Body == nil {
		return nil, nil
	}

	byName := make(map[string]string, len(fx.imports))
	for _, imp := range fx.imports {
		byName[imp.name] = imp.path
	}

	seenTarget := make(map[string]bool)
	seenImport := make(map[string]bool)
	addTarget := func(t string) {
		if !seenTarget[t] {
			seenTarget[t] = true
			targets = append(targets, t)
		}
	}

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SelectorExpr:
			if id, ok := x.X.(*ast.Ident); ok {
				if p, ok := byName[id.Name]; ok && !seenImport[p] {
					seenImport[p] = true
					used = append(used, p)
				}
			}
		case *ast.CallExpr:
			switch f := x.Fun.(type) {
			case *ast.Ident:
				switch {
				case builtins[f.Name]:
				case fx.local[f.Name]:
					addTarget(types.QualifiedName(fx.filePath, f.Name))
				default:
					addTarget(f.Name)
				}
			case *ast.SelectorExpr:
				if id, ok := f.X.(*ast.Ident); ok {
					if _, isImport := byName[id.Name]; isImport {
						addTarget(id.Name + "." + f.Sel.Name)
						break
					}
				}
				// Method call on a value; resolved by bare name
				addTarget(f.Sel.Name)
			}
		}
		return true
	})
	return targets, used
}

// parameters converts a parameter list
func (fx *fileExtractor) parameters(fields *ast.FieldList) []types.Parameter {
	params := make([]types.Parameter, 0)
	if fields == nil {
		return params
	}
	for _, field := range fields.List {
		typeStr := fx.exprToString(field.Type)
		_, variadic := field.Type.(*ast.Ellipsis)
		if len(field.Names) == 0 {
			params = append(params, types.Parameter{Type: typeStr, Optional: variadic})
			continue
		}
		for _, name := range field.Names {
			params = append(params, types.Parameter{Name: name.Name, Type: typeStr, Optional: variadic})
		}
	}
	return params
}

// receiverType extracts the receiver type name from a method
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	}
	return ""
}

// functionSignature builds a function signature string
func (fx *fileExtractor) functionSignature(fn *ast.FuncDecl) string {
	var sig strings.Builder

	sig.WriteString("func ")

	// Add receiver for methods
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(fx.exprToString(fn.Recv.List[0].Type))
		sig.WriteString(") ")
	}

	sig.WriteString(fn.Name.Name)

	// Parameters
	sig.WriteString("(")
	sig.WriteString(fx.fieldListToString(fn.Type.Params))
	sig.WriteString(")")

	// Results
	if results := fx.fieldListToString(fn.Type.Results); results != "" {
		if fn.Type.Results.NumFields() > 1 || len(fn.Type.Results.List[0].Names) > 0 {
			sig.WriteString(" (")
			sig.WriteString(results)
			sig.WriteString(")")
		} else {
			sig.WriteString(" ")
			sig.WriteString(results)
		}
	}

	return sig.String()
}

// fieldListToString converts a field list to a string representation
func (fx *fileExtractor) fieldListToString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fieldList.List {
		typeStr := fx.exprToString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}

	return strings.Join(parts, ", ")
}

// exprToString converts an expression to a string representation
func (fx *fileExtractor) exprToString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}

	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + fx.exprToString(t.X)
	case *ast.ArrayType:
		if t.Len != nil {
			return "[" + fx.exprToString(t.Len) + "]" + fx.exprToString(t.Elt)
		}
		return "[]" + fx.exprToString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", fx.exprToString(t.Key), fx.exprToString(t.Value))
	case *ast.ChanType:
		return "chan " + fx.exprToString(t.Value)
	case *ast.FuncType:
		return "func(" + fx.fieldListToString(t.Params) + ")"
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return "interface{}"
		}
		return "interface{...}"
	case *ast.StructType:
		return "struct{...}"
	case *ast.SelectorExpr:
		return fx.exprToString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + fx.exprToString(t.Elt)
	case *ast.IndexExpr:
		return fx.exprToString(t.X) + "[" + fx.exprToString(t.Index) + "]"
	case *ast.IndexListExpr:
		args := make([]string, 0, len(t.Indices))
		for _, idx := range t.Indices {
			args = append(args, fx.exprToString(idx))
		}
		return fx.exprToString(t.X) + "[" + strings.Join(args, ", ") + "]"
	case *ast.BasicLit:
		return t.Value
	default:
		return "..."
	}
}

// cyclomaticComplexity counts decision points plus one
func cyclomaticComplexity(fn *ast.FuncDecl) int {
	complexity := 1
	if fn.Body == nil {
		return complexity
	}
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			complexity++
		case *ast.CaseClause:
			if x.List != nil {
				complexity++
			}
		case *ast.CommClause:
			if x.Comm != nil {
				complexity++
			}
		case *ast.BinaryExpr:
			if x.Op == token.LAND || x.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	return complexity
}

// docFromComment splits a doc comment into summary, description and
// indented example blocks
func docFromComment(doc *ast.CommentGroup) *types.Documentation {
	if doc == nil {
		return &types.Documentation{}
	}
	text := strings.TrimSpace(doc.Text())
	d := &types.Documentation{
		Summary:     firstSentence(text),
		Description: text,
		HasDocBlock: true,
	}

	var block []string
	flush := func() {
		if len(block) > 0 {
			d.Examples = append(d.Examples, strings.Join(block, "\n"))
			block = nil
		}
	}
	for _, line := range strings.Split(doc.Text(), "\n") {
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "  ") {
			block = append(block, strings.TrimPrefix(strings.TrimPrefix(line, "\t"), "  "))
			continue
		}
		flush()
	}
	flush()
	return d
}

// firstSentence returns text up to the first period followed by a space,
// or the first paragraph
func firstSentence(text string) string {
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, ". "); i >= 0 {
		text = text[:i+1]
	}
	return strings.Join(strings.Fields(text), " ")
}
