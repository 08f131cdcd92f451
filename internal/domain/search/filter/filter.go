package filter

import (
	"fmt"
	"slices"
	"strings"
)

// Field names stored alongside every indexed chunk.
const (
	FieldCompanyID   = "company_id"
	FieldContentType = "content_type"
	FieldPlayID      = "play_id"
	FieldUserID      = "user_id"
)

// Content type values for FieldContentType.
const (
	ContentKnowledge  = "knowledge"
	ContentSubmission = "submission"
)

// Node is a filter expression. The set of implementations is closed:
// Eq, In, And and Or are the only nodes a backend has to translate.
type Node interface {
	Accept(v Visitor) error
	node()
}

// Visitor walks a filter tree. Backends implement it to serialize
// the tree into their own query language.
type Visitor interface {
	VisitEq(n Eq) error
	VisitIn(n In) error
	VisitAnd(n And) error
	VisitOr(n Or) error
}

// Eq matches records whose field equals Value.
type Eq struct {
	Field string
	Value string
}

// In matches records whose field is one of Values. An empty set matches nothing.
type In struct {
	Field  string
	Values []string
}

// And matches records satisfying every child.
type And struct {
	Nodes []Node
}

// Or matches records satisfying at least one child.
type Or struct {
	Nodes []Node
}

// Accept dispatches to VisitEq.
func (n Eq) Accept(v Visitor) error { return v.VisitEq(n) }

// Accept dispatches to VisitIn.
func (n In) Accept(v Visitor) error { return v.VisitIn(n) }

// Accept dispatches to VisitAnd.
func (n And) Accept(v Visitor) error { return v.VisitAnd(n) }

// Accept dispatches to VisitOr.
func (n Or) Accept(v Visitor) error { return v.VisitOr(n) }

func (Eq) node()  {}
func (In) node()  {}
func (And) node() {}
func (Or) node()  {}

// NewAnd builds an And node.
func NewAnd(nodes ...Node) And { return And{Nodes: nodes} }

// NewOr builds an Or node.
func NewOr(nodes ...Node) Or { return Or{Nodes: nodes} }

// CompanyFence is the tenant-scoping conjunct required at the root of every retrieval filter.
func CompanyFence(companyID string) Eq {
	return Eq{Field: FieldCompanyID, Value: companyID}
}

// HasCompanyFence reports whether n is an And whose first conjunct is
// Eq(company_id, companyID). An empty companyID never passes.
func HasCompanyFence(n Node, companyID string) bool {
	if companyID == "" {
		return false
	}
	and, ok := n.(And)
	if !ok || len(and.Nodes) == 0 {
		return false
	}
	eq, ok := and.Nodes[0].(Eq)
	return ok && eq.Field == FieldCompanyID && eq.Value == companyID
}

// HasEmptyIn reports whether any In under n has no values or a blank value.
// Retrieval refuses such filters before any provider call.
func HasEmptyIn(n Node) bool {
	switch v := n.(type) {
	case In:
		return len(v.Values) == 0 || slices.Contains(v.Values, "")
	case And:
		return slices.ContainsFunc(v.Nodes, HasEmptyIn)
	case Or:
		return slices.ContainsFunc(v.Nodes, HasEmptyIn)
	}
	return false
}

// String renders n in a backend-neutral notation for logs and tests.
func String(n Node) string {
	p := &printer{}
	if err := n.Accept(p); err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) VisitEq(n Eq) error {
	fmt.Fprintf(&p.sb, "%s = %q", n.Field, n.Value)
	return nil
}

func (p *printer) VisitIn(n In) error {
	quoted := make([]string, len(n.Values))
	for i, v := range n.Values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	fmt.Fprintf(&p.sb, "%s IN [%s]", n.Field, strings.Join(quoted, ", "))
	return nil
}

func (p *printer) VisitAnd(n And) error { return p.group("AND", n.Nodes) }

func (p *printer) VisitOr(n Or) error { return p.group("OR", n.Nodes) }

func (p *printer) group(op string, nodes []Node) error {
	p.sb.WriteString("(")
	for i, child := range nodes {
		if i > 0 {
			p.sb.WriteString(" " + op + " ")
		}
		if err := child.Accept(p); err != nil {
			return err
		}
	}
	p.sb.WriteString(")")
	return nil
}
