package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// AST dump
// ---------------------------------------------------------------------------

// Dump renders an AST as an indented text tree. Each node is one line
// holding its kind, scalar fields and position; child nodes follow on
// deeper lines under the name of the field that holds them.
func Dump(node AST) string {
	d := &dumper{}
	d.node("", node, 0)
	return d.sb.String()
}

type dumper struct {
	sb strings.Builder
}

func (d *dumper) line(depth int, field, text string) {
	d.sb.WriteString(strings.Repeat("  ", depth))
	if field != "" {
		d.sb.WriteString(field)
		d.sb.WriteByte(':')
		if text != "" {
			d.sb.WriteByte(' ')
		}
	}
	d.sb.WriteString(text)
	d.sb.WriteByte('\n')
}

func (d *dumper) head(depth int, field string, node AST, kind string, attrs ...string) {
	p := node.Pos()
	text := kind
	if len(attrs) > 0 {
		text += " " + strings.Join(attrs, " ")
	}
	d.line(depth, field, fmt.Sprintf("%s @%d:%d", text, p.Lineno, p.ColOffset))
}

func (d *dumper) stmts(depth int, field string, body []Stmt) {
	if len(body) == 0 {
		return
	}
	d.line(depth, field, "")
	for _, s := range body {
		d.node("", s, depth+1)
	}
}

func (d *dumper) exprs(depth int, field string, list []Expr) {
	if len(list) == 0 {
		return
	}
	d.line(depth, field, "")
	for _, e := range list {
		d.node("", e, depth+1)
	}
}

func (d *dumper) opt(depth int, field string, e Expr) {
	if e != nil {
		d.node(field, e, depth)
	}
}

func (d *dumper) args(depth int, a *Arguments) {
	if a == nil {
		return
	}
	var attrs []string
	if a.Vararg != "" {
		attrs = append(attrs, "vararg="+a.Vararg)
	}
	if a.Kwarg != "" {
		attrs = append(attrs, "kwarg="+a.Kwarg)
	}
	d.line(depth, "args", strings.Join(append([]string{"arguments"}, attrs...), " "))
	d.exprs(depth+1, "args", a.Args)
	d.exprs(depth+1, "defaults", a.Defaults)
}

func (d *dumper) comprehensions(depth int, gens []*Comprehension) {
	for _, g := range gens {
		d.line(depth, "generator", "comprehension")
		d.node("target", g.Target, depth+1)
		d.node("iter", g.Iter, depth+1)
		d.exprs(depth+1, "ifs", g.Ifs)
	}
}

func aliasText(a *Alias) string {
	if a.Asname != "" {
		return a.Name + " as " + a.Asname
	}
	return a.Name
}

func aliasList(names []*Alias) string {
	parts := make([]string, len(names))
	for i, a := range names {
		parts[i] = aliasText(a)
	}
	return "names=[" + strings.Join(parts, ", ") + "]"
}

func numText(n Number) string {
	switch n.Kind {
	case IntNum:
		return strconv.FormatInt(n.Int, 10)
	case LongNum:
		return n.Text + "L"
	}
	return strconv.FormatFloat(n.Float, 'g', -1, 64)
}

func (d *dumper) node(field string, node AST, depth int) {
	in := depth + 1
	switch n := node.(type) {
	case *Module:
		d.head(depth, field, n, "Module")
		d.stmts(in, "body", n.Body)

	// statements
	case *FunctionDef:
		d.head(depth, field, n, "FunctionDef", "name="+n.Name)
		d.args(in, n.Args)
		d.stmts(in, "body", n.Body)
		d.exprs(in, "decorators", n.DecoratorList)
	case *ClassDef:
		d.head(depth, field, n, "ClassDef", "name="+n.Name)
		d.exprs(in, "bases", n.Bases)
		d.stmts(in, "body", n.Body)
		d.exprs(in, "decorators", n.DecoratorList)
	case *Return:
		d.head(depth, field, n, "Return")
		d.opt(in, "value", n.Value)
	case *Delete:
		d.head(depth, field, n, "Delete")
		d.exprs(in, "targets", n.Targets)
	case *Assign:
		d.head(depth, field, n, "Assign")
		d.exprs(in, "targets", n.Targets)
		d.node("value", n.Value, in)
	case *AugAssign:
		d.head(depth, field, n, "AugAssign", "op="+n.Op.String())
		d.node("target", n.Target, in)
		d.node("value", n.Value, in)
	case *Print:
		d.head(depth, field, n, "Print", "nl="+strconv.FormatBool(n.NL))
		d.opt(in, "dest", n.Dest)
		d.exprs(in, "values", n.Values)
	case *For:
		d.head(depth, field, n, "For")
		d.node("target", n.Target, in)
		d.node("iter", n.Iter, in)
		d.stmts(in, "body", n.Body)
		d.stmts(in, "orelse", n.Orelse)
	case *While:
		d.head(depth, field, n, "While")
		d.node("test", n.Test, in)
		d.stmts(in, "body", n.Body)
		d.stmts(in, "orelse", n.Orelse)
	case *If:
		d.head(depth, field, n, "If")
		d.node("test", n.Test, in)
		d.stmts(in, "body", n.Body)
		d.stmts(in, "orelse", n.Orelse)
	case *With:
		d.head(depth, field, n, "With")
		d.node("context_expr", n.ContextExpr, in)
		d.opt(in, "optional_vars", n.OptionalVars)
		d.stmts(in, "body", n.Body)
	case *Raise:
		d.head(depth, field, n, "Raise")
		d.opt(in, "type", n.Type)
		d.opt(in, "inst", n.Inst)
		d.opt(in, "tback", n.Tback)
	case *TryExcept:
		d.head(depth, field, n, "TryExcept")
		d.stmts(in, "body", n.Body)
		for _, h := range n.Handlers {
			d.head(in, "handler", h, "ExceptHandler")
			d.opt(in+1, "type", h.Type)
			d.opt(in+1, "name", h.Name)
			d.stmts(in+1, "body", h.Body)
		}
		d.stmts(in, "orelse", n.Orelse)
	case *TryFinally:
		d.head(depth, field, n, "TryFinally")
		d.stmts(in, "body", n.Body)
		d.stmts(in, "finalbody", n.FinalBody)
	case *Assert:
		d.head(depth, field, n, "Assert")
		d.node("test", n.Test, in)
		d.opt(in, "msg", n.Msg)
	case *Import:
		d.head(depth, field, n, "Import", aliasList(n.Names))
	case *ImportFrom:
		d.head(depth, field, n, "ImportFrom", "module="+n.Module, aliasList(n.Names),
			"level="+strconv.Itoa(n.Level))
	case *Exec:
		d.head(depth, field, n, "Exec")
		d.node("body", n.Body, in)
		d.opt(in, "globals", n.Globals)
		d.opt(in, "locals", n.Locals)
	case *Global:
		d.head(depth, field, n, "Global", "names=["+strings.Join(n.Names, ", ")+"]")
	case *NonLocal:
		d.head(depth, field, n, "NonLocal", "names=["+strings.Join(n.Names, ", ")+"]")
	case *ExprStmt:
		d.head(depth, field, n, "Expr")
		d.node("value", n.Value, in)
	case *Pass:
		d.head(depth, field, n, "Pass")
	case *Break:
		d.head(depth, field, n, "Break")
	case *Continue:
		d.head(depth, field, n, "Continue")

	// expressions
	case *BoolOp:
		d.head(depth, field, n, "BoolOp", "op="+n.Op.String())
		d.exprs(in, "values", n.Values)
	case *BinOp:
		d.head(depth, field, n, "BinOp", "op="+n.Op.String())
		d.node("left", n.Left, in)
		d.node("right", n.Right, in)
	case *UnaryOp:
		d.head(depth, field, n, "UnaryOp", "op="+n.Op.String())
		d.node("operand", n.Operand, in)
	case *Lambda:
		d.head(depth, field, n, "Lambda")
		d.args(in, n.Args)
		d.node("body", n.Body, in)
	case *IfExp:
		d.head(depth, field, n, "IfExp")
		d.node("test", n.Test, in)
		d.node("body", n.Body, in)
		d.node("orelse", n.Orelse, in)
	case *Dict:
		d.head(depth, field, n, "Dict")
		d.exprs(in, "keys", n.Keys)
		d.exprs(in, "values", n.Values)
	case *ListComp:
		d.head(depth, field, n, "ListComp")
		d.node("elt", n.Elt, in)
		d.comprehensions(in, n.Generators)
	case *GeneratorExp:
		d.head(depth, field, n, "GeneratorExp")
		d.node("elt", n.Elt, in)
		d.comprehensions(in, n.Generators)
	case *Yield:
		d.head(depth, field, n, "Yield")
		d.opt(in, "value", n.Value)
	case *Compare:
		ops := make([]string, len(n.Ops))
		for i, op := range n.Ops {
			ops[i] = op.String()
		}
		d.head(depth, field, n, "Compare", "ops=["+strings.Join(ops, ", ")+"]")
		d.node("left", n.Left, in)
		d.exprs(in, "comparators", n.Comparators)
	case *Call:
		d.head(depth, field, n, "Call")
		d.node("func", n.Func, in)
		d.exprs(in, "args", n.Args)
		for _, kw := range n.Keywords {
			d.node("keyword "+kw.Arg, kw.Value, in)
		}
		d.opt(in, "starargs", n.Starargs)
		d.opt(in, "kwargs", n.Kwargs)
	case *Num:
		d.head(depth, field, n, "Num", "n="+numText(n.N))
	case *Str:
		d.head(depth, field, n, "Str", "s="+quoteJS(n.S))
	case *Attribute:
		d.head(depth, field, n, "Attribute", "attr="+n.Attr, "ctx="+n.Ctx.String())
		d.node("value", n.Value, in)
	case *Subscript:
		d.head(depth, field, n, "Subscript", "ctx="+n.Ctx.String())
		d.node("value", n.Value, in)
		d.node("slice", n.Slice, in)
	case *Name:
		d.head(depth, field, n, "Name", "id="+n.ID, "ctx="+n.Ctx.String())
	case *List:
		d.head(depth, field, n, "List", "ctx="+n.Ctx.String())
		d.exprs(in, "elts", n.Elts)
	case *Tuple:
		d.head(depth, field, n, "Tuple", "ctx="+n.Ctx.String())
		d.exprs(in, "elts", n.Elts)

	// slices
	case *Ellipsis:
		d.head(depth, field, n, "Ellipsis")
	case *Slice:
		d.head(depth, field, n, "Slice")
		d.opt(in, "lower", n.Lower)
		d.opt(in, "upper", n.Upper)
		d.opt(in, "step", n.Step)
	case *ExtSlice:
		d.head(depth, field, n, "ExtSlice")
		for _, dim := range n.Dims {
			d.node("dim", dim, in)
		}
	case *Index:
		d.head(depth, field, n, "Index")
		d.node("value", n.Value, in)

	default:
		d.line(depth, field, fmt.Sprintf("<unknown %T>", node))
	}
}
