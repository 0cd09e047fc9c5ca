package compiler

import (
	"sort"

	"github.com/skein-lang/skein/runtime"
)

// ---------------------------------------------------------------------------
// Visit tracking
// ---------------------------------------------------------------------------

// A node's visits are counted in a hidden number variable only when
// something can observe them: a visited()/visited_count() call naming the
// node, or a `tracking: always` header. `tracking: never` opts a node out
// even when it is queried.

// walkExpressions visits every expression reachable from a body.
func walkExpressions(body []Statement, visit func(Expression)) {
	var walkExpr func(Expression)
	walkExpr = func(expr Expression) {
		if expr == nil {
			return
		}
		visit(expr)
		switch e := expr.(type) {
		case *UnaryExpr:
			walkExpr(e.Operand)
		case *BinaryExpr:
			walkExpr(e.Left)
			walkExpr(e.Right)
		case *CallExpr:
			for _, arg := range e.Args {
				walkExpr(arg)
			}
		}
	}
	walkParts := func(parts []TextPart) {
		for _, part := range parts {
			walkExpr(part.Expression)
		}
	}
	walkStatements(body, func(statement Statement) {
		switch s := statement.(type) {
		case *LineStatement:
			walkParts(s.Parts)
		case *OptionStatement:
			walkParts(s.Parts)
			walkExpr(s.Condition)
		case *SetStatement:
			walkExpr(s.Value)
		case *DeclareStatement:
			walkExpr(s.Default)
		case *IfStatement:
			for _, clause := range s.Clauses {
				walkExpr(clause.Condition)
			}
		case *CommandStatement:
			walkParts(s.Parts)
		}
	})
}

// findTrackingNodes decides which node titles get a visit counter.
// The result is sorted for deterministic output.
func findTrackingNodes(files []*File) []string {
	queried := make(map[string]bool)
	always := make(map[string]bool)
	never := make(map[string]bool)
	titles := make(map[string]bool)

	for _, file := range files {
		for _, node := range file.Nodes {
			titles[node.Title] = true
			switch node.Headers["tracking"] {
			case "always":
				always[node.Title] = true
			case "never":
				never[node.Title] = true
			}
			walkExpressions(node.Body, func(expr Expression) {
				call, ok := expr.(*CallExpr)
				if !ok || (call.Name != runtime.FuncVisited && call.Name != runtime.FuncVisitedCount) {
					return
				}
				if len(call.Args) != 1 {
					return
				}
				if target, ok := call.Args[0].(*StringLiteral); ok {
					queried[target.Value] = true
				}
			})
		}
	}

	var tracked []string
	// A query naming a node that does not exist tracks nothing.
	for title := range queried {
		if titles[title] && !never[title] {
			always[title] = true
		}
	}
	for title := range always {
		if !never[title] {
			tracked = append(tracked, title)
		}
	}
	sort.Strings(tracked)
	return tracked
}

// addTrackingDeclarations registers a hidden counter declaration for each
// tracked node. Counters start at zero and are never author-visible.
func addTrackingDeclarations(tracked []string, known *declarationSet) {
	zero := runtime.NumberValue(0)
	for _, title := range tracked {
		name := runtime.VisitCounterVariable(title)
		if _, exists := known.get(name); exists {
			continue
		}
		known.add(&Declaration{
			Name:       name,
			Type:       TypeNumber,
			Default:    &zero,
			Provenance: ProvenanceDerived,
		})
	}
}
