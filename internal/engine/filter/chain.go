// Package filter narrows what reaches a Consumer. A Chain wraps a consumer
// with a list of rules; a row is forwarded only when every rule keeps it.
package filter

import (
	"github.com/prometheus/client_golang/prometheus"

	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"
	"rf2boot/internal/shared/observability"
)

// Rule is a predicate over one row.
type Rule interface {
	Name() string
	Keep(rf2.Row) bool
}

type ruleFunc struct {
	name string
	fn   func(rf2.Row) bool
}

func (r ruleFunc) Name() string          { return r.name }
func (r ruleFunc) Keep(row rf2.Row) bool { return r.fn(row) }

// NewRule adapts a function to a Rule.
func NewRule(name string, fn func(rf2.Row) bool) Rule {
	return ruleFunc{name: name, fn: fn}
}

// Chain forwards lifecycle calls to next unchanged and data calls only when
// every rule keeps the row. Version calls reach next only when it is a
// HistoryConsumer.
type Chain struct {
	next    ports.Consumer
	history ports.HistoryConsumer
	rules   []Rule
	dropped []prometheus.Counter
}

var _ ports.HistoryConsumer = (*Chain)(nil)

func Wrap(next ports.Consumer, rules ...Rule) *Chain {
	c := &Chain{next: next, rules: rules}
	c.history, _ = next.(ports.HistoryConsumer)
	for _, r := range rules {
		c.dropped = append(c.dropped, observability.RowsDropped.WithLabelValues(r.Name()))
	}
	return c
}

// Rules returns the names of the rules applied by c, in order.
func (c *Chain) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

func (c *Chain) keep(row rf2.Row) bool {
	for i, r := range c.rules {
		if !r.Keep(row) {
			c.dropped[i].Inc()
			return false
		}
	}
	return true
}

func (c *Chain) Preprocessing()       { c.next.Preprocessing() }
func (c *Chain) StartLoading()        { c.next.StartLoading() }
func (c *Chain) FinishLoading() error { return c.next.FinishLoading() }

func (c *Chain) StartVersion(v string) {
	if c.history != nil {
		c.history.StartVersion(v)
	}
}

func (c *Chain) FinishVersion(v string) {
	if c.history != nil {
		c.history.FinishVersion(v)
	}
}

func (c *Chain) Concept(r rf2.ConceptRow) {
	if c.keep(r) {
		c.next.Concept(r)
	}
}

func (c *Chain) Description(r rf2.DescriptionRow) {
	if c.keep(r) {
		c.next.Description(r)
	}
}

func (c *Chain) Relationship(r rf2.RelationshipRow) {
	if c.keep(r) {
		c.next.Relationship(r)
	}
}

func (c *Chain) ConcreteRelationship(r rf2.ConcreteRelationshipRow) {
	if c.keep(r) {
		c.next.ConcreteRelationship(r)
	}
}

func (c *Chain) Identifier(r rf2.IdentifierRow) {
	if c.keep(r) {
		c.next.Identifier(r)
	}
}

func (c *Chain) RefsetMember(r rf2.RefsetMemberRow) {
	if c.keep(r) {
		c.next.RefsetMember(r)
	}
}
