package validator

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/isdmx/querybox/policy"
)

// walker performs a typed visit over the closed set of syntax-node kinds,
// so that a name is classified unambiguously as a call, an attribute access,
// an import or a plain variable. Node kinds outside the enumeration are
// treated as a hard violation rather than silently skipped: an unwalked
// subtree would be unchecked code.
type walker struct {
	policy *policy.Policy

	importViolations    []string
	operationViolations []string
	lambdaViolations    []string

	seenImport    map[string]struct{}
	seenOperation map[string]struct{}

	loopBound map[string]struct{} // exempt from variable warnings
	varOrder  []string            // plain variable names, first-seen order
	varSeen   map[string]struct{}
	callOrder []string // called identifiers, first-seen order
	callSeen  map[string]struct{}
}

func newWalker(pol *policy.Policy) *walker {
	return &walker{
		policy:        pol,
		seenImport:    make(map[string]struct{}),
		seenOperation: make(map[string]struct{}),
		loopBound:     make(map[string]struct{}),
		varSeen:       make(map[string]struct{}),
		callSeen:      make(map[string]struct{}),
	}
}

func (w *walker) violateImport(module string) {
	if _, ok := w.seenImport[module]; !ok {
		w.seenImport[module] = struct{}{}
		w.importViolations = append(w.importViolations, module)
	}
}

func (w *walker) violateOperation(name string) {
	if _, ok := w.seenOperation[name]; !ok {
		w.seenOperation[name] = struct{}{}
		w.operationViolations = append(w.operationViolations, name)
	}
}

func (w *walker) violateLambda(kind string) {
	w.lambdaViolations = append(w.lambdaViolations, kind)
}

// useVariable records a plain variable occurrence (reference, assignment
// target or declaration) for the advisory warning pass.
func (w *walker) useVariable(name string) {
	if w.policy.IsBlockedOperation(name) {
		w.violateOperation(name)
		return
	}
	if _, ok := w.varSeen[name]; !ok {
		w.varSeen[name] = struct{}{}
		w.varOrder = append(w.varOrder, name)
	}
}

// useCall records a called identifier. Blocked names reject; names outside
// the allowlist only warn.
func (w *walker) useCall(name string) {
	if w.policy.IsBlockedOperation(name) {
		w.violateOperation(name)
		return
	}
	if _, ok := w.callSeen[name]; !ok {
		w.callSeen[name] = struct{}{}
		w.callOrder = append(w.callOrder, name)
	}
}

// useAttribute records an attribute (dot or quoted bracket) access.
func (w *walker) useAttribute(name string) {
	if w.policy.IsBlockedOperation(name) {
		w.violateOperation(name)
	}
}

// warnings computes the advisory findings after the walk is complete, when
// the loop-bound name set is final.
func (w *walker) warnings() []string {
	var out []string
	for _, name := range w.varOrder {
		if _, loop := w.loopBound[name]; loop {
			continue
		}
		if w.policy.IsAllowedVariable(name) || w.policy.IsAllowedOperation(name) {
			continue
		}
		out = append(out, fmt.Sprintf("unknown variable '%s'", name))
	}
	for _, name := range w.callOrder {
		if w.policy.IsAllowedOperation(name) {
			continue
		}
		out = append(out, fmt.Sprintf("unknown operation '%s'", name))
	}
	return out
}

func (w *walker) walkProgram(program *ast.Program) {
	for _, stmt := range program.Body {
		w.walkStmt(stmt)
	}
}

func (w *walker) walkStmt(stmt ast.Statement) {
	switch n := stmt.(type) {
	case nil:
	case *ast.ExpressionStatement:
		w.walkExpr(n.Expression)
	case *ast.VariableStatement:
		for _, b := range n.List {
			w.walkBinding(b, false)
		}
	case *ast.LexicalDeclaration:
		for _, b := range n.List {
			w.walkBinding(b, false)
		}
	case *ast.BlockStatement:
		for _, s := range n.List {
			w.walkStmt(s)
		}
	case *ast.IfStatement:
		w.walkExpr(n.Test)
		w.walkStmt(n.Consequent)
		w.walkStmt(n.Alternate)
	case *ast.ForStatement:
		w.walkForInit(n.Initializer)
		w.walkExpr(n.Test)
		w.walkExpr(n.Update)
		w.walkStmt(n.Body)
	case *ast.ForInStatement:
		w.walkForInto(n.Into)
		w.walkExpr(n.Source)
		w.walkStmt(n.Body)
	case *ast.ForOfStatement:
		w.walkForInto(n.Into)
		w.walkExpr(n.Source)
		w.walkStmt(n.Body)
	case *ast.WhileStatement:
		w.walkExpr(n.Test)
		w.walkStmt(n.Body)
	case *ast.DoWhileStatement:
		w.walkExpr(n.Test)
		w.walkStmt(n.Body)
	case *ast.ReturnStatement:
		w.walkExpr(n.Argument)
	case *ast.ThrowStatement:
		w.walkExpr(n.Argument)
	case *ast.TryStatement:
		w.walkStmt(n.Body)
		if n.Catch != nil {
			if id, ok := n.Catch.Parameter.(*ast.Identifier); ok {
				w.loopBound[id.Name.String()] = struct{}{}
			}
			w.walkStmt(n.Catch.Body)
		}
		w.walkStmt(n.Finally)
	case *ast.SwitchStatement:
		w.walkExpr(n.Discriminant)
		for _, c := range n.Body {
			w.walkExpr(c.Test)
			for _, s := range c.Consequent {
				w.walkStmt(s)
			}
		}
	case *ast.LabelledStatement:
		w.walkStmt(n.Statement)
	case *ast.BranchStatement, *ast.EmptyStatement, *ast.DebuggerStatement:
	case *ast.FunctionDeclaration:
		w.violateLambda("function")
	case *ast.ClassDeclaration:
		w.violateLambda("class")
	default:
		w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", stmt))
	}
}

func (w *walker) walkForInit(init ast.ForLoopInitializer) {
	switch n := init.(type) {
	case nil:
	case *ast.ForLoopInitializerExpression:
		w.walkLoopTarget(n.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		for _, b := range n.List {
			w.walkBinding(b, true)
		}
	case *ast.ForLoopInitializerLexicalDecl:
		for _, b := range n.LexicalDeclaration.List {
			w.walkBinding(b, true)
		}
	default:
		w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", init))
	}
}

func (w *walker) walkForInto(into ast.ForInto) {
	switch n := into.(type) {
	case nil:
	case *ast.ForIntoVar:
		w.walkBinding(n.Binding, true)
	case *ast.ForDeclaration:
		if id, ok := n.Target.(*ast.Identifier); ok {
			w.loopBound[id.Name.String()] = struct{}{}
		} else {
			w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", n.Target))
		}
	case *ast.ForIntoExpression:
		w.walkLoopTarget(n.Expression)
	default:
		w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", into))
	}
}

// walkLoopTarget handles "for (i = 0; ...)" style initializers where the
// loop variable is assigned rather than declared.
func (w *walker) walkLoopTarget(expr ast.Expression) {
	if assign, ok := expr.(*ast.AssignExpression); ok {
		if id, ok := assign.Left.(*ast.Identifier); ok {
			w.loopBound[id.Name.String()] = struct{}{}
			w.walkExpr(assign.Right)
			return
		}
	}
	w.walkExpr(expr)
}

func (w *walker) walkBinding(b *ast.Binding, loop bool) {
	switch target := b.Target.(type) {
	case *ast.Identifier:
		name := target.Name.String()
		if loop {
			w.loopBound[name] = struct{}{}
		} else {
			w.useVariable(name)
		}
	default:
		w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", b.Target))
	}
	w.walkExpr(b.Initializer)
}

func (w *walker) walkExpr(expr ast.Expression) {
	switch n := expr.(type) {
	case nil:
	case *ast.Identifier:
		w.useVariable(n.Name.String())
	case *ast.DotExpression:
		w.useAttribute(n.Identifier.Name.String())
		w.walkMemberBase(n.Left)
	case *ast.BracketExpression:
		if lit, ok := n.Member.(*ast.StringLiteral); ok {
			w.useAttribute(lit.Value.String())
		} else {
			w.walkExpr(n.Member)
		}
		w.walkMemberBase(n.Left)
	case *ast.CallExpression:
		w.walkCall(n.Callee, n.ArgumentList)
	case *ast.NewExpression:
		w.walkCall(n.Callee, n.ArgumentList)
	case *ast.AssignExpression:
		if id, ok := n.Left.(*ast.Identifier); ok {
			w.useVariable(id.Name.String())
		} else {
			w.walkExpr(n.Left)
		}
		w.walkExpr(n.Right)
	case *ast.BinaryExpression:
		w.walkExpr(n.Left)
		w.walkExpr(n.Right)
	case *ast.UnaryExpression:
		w.walkExpr(n.Operand)
	case *ast.ConditionalExpression:
		w.walkExpr(n.Test)
		w.walkExpr(n.Consequent)
		w.walkExpr(n.Alternate)
	case *ast.SequenceExpression:
		for _, e := range n.Sequence {
			w.walkExpr(e)
		}
	case *ast.ArrayLiteral:
		for _, e := range n.Value {
			w.walkExpr(e)
		}
	case *ast.ObjectLiteral:
		for _, p := range n.Value {
			w.walkProperty(p)
		}
	case *ast.TemplateLiteral:
		w.walkExpr(n.Tag)
		for _, e := range n.Expressions {
			w.walkExpr(e)
		}
	case *ast.FunctionLiteral:
		w.violateLambda("function")
	case *ast.ArrowFunctionLiteral:
		w.violateLambda("arrow function")
	case *ast.ClassLiteral:
		w.violateLambda("class")
	case *ast.StringLiteral, *ast.NumberLiteral, *ast.BooleanLiteral,
		*ast.NullLiteral, *ast.RegExpLiteral, *ast.ThisExpression:
	default:
		w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", expr))
	}
}

// walkMemberBase walks the object side of a member access. A root
// identifier matching a blocked module is an import violation: dotted-path
// references reach a host module exactly like an import would.
func (w *walker) walkMemberBase(base ast.Expression) {
	if id, ok := base.(*ast.Identifier); ok {
		name := id.Name.String()
		if w.policy.IsBlockedModule(name) {
			w.violateImport(name)
			return
		}
		w.useVariable(name)
		return
	}
	w.walkExpr(base)
}

// walkCall classifies the callee. Loader calls report the requested module;
// other identifiers and method names go through the deny/allow lists.
func (w *walker) walkCall(callee ast.Expression, args []ast.Expression) {
	switch c := callee.(type) {
	case *ast.Identifier:
		name := c.Name.String()
		if name == "require" || name == "importModule" || name == "importScripts" {
			w.violateImport(moduleFromArgs(args))
		} else {
			w.useCall(name)
		}
	case *ast.DotExpression:
		w.useCall(c.Identifier.Name.String())
		w.walkMemberBase(c.Left)
	case *ast.BracketExpression:
		if lit, ok := c.Member.(*ast.StringLiteral); ok {
			w.useCall(lit.Value.String())
		} else {
			w.walkExpr(c.Member)
		}
		w.walkMemberBase(c.Left)
	default:
		w.walkExpr(callee)
	}
	for _, arg := range args {
		w.walkExpr(arg)
	}
}

func (w *walker) walkProperty(prop ast.Property) {
	switch p := prop.(type) {
	case *ast.PropertyKeyed:
		w.walkExpr(p.Key)
		w.walkExpr(p.Value)
	case *ast.PropertyShort:
		w.useVariable(p.Name.Name.String())
		w.walkExpr(p.Initializer)
	case *ast.SpreadElement:
		w.walkExpr(p.Expression)
	default:
		w.violateOperation(fmt.Sprintf("unsupported syntax (%T)", prop))
	}
}

func moduleFromArgs(args []ast.Expression) string {
	if len(args) > 0 {
		if lit, ok := args[0].(*ast.StringLiteral); ok {
			return moduleRoot(lit.Value.String())
		}
	}
	return "unknown"
}
