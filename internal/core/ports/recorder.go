package ports

import (
	"sync"

	"rf2boot/internal/engine/rf2"
)

// Recorder is a HistoryConsumer that keeps every call it receives. It is
// used by tests and by dry runs.
type Recorder struct {
	mu        sync.Mutex
	events    []string
	rows      []rf2.Row
	finishErr error
}

// NewRecorder returns a Recorder whose FinishLoading returns finishErr.
func NewRecorder(finishErr error) *Recorder {
	return &Recorder{finishErr: finishErr}
}

func (r *Recorder) event(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) row(row rf2.Row) {
	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()
}

func (r *Recorder) Preprocessing()             { r.event("preprocessing") }
func (r *Recorder) StartLoading()              { r.event("start") }
func (r *Recorder) StartVersion(v string)      { r.event("start-version:" + v) }
func (r *Recorder) FinishVersion(v string)     { r.event("finish-version:" + v) }
func (r *Recorder) FinishLoading() error {
	r.event("finish")
	return r.finishErr
}

func (r *Recorder) Concept(row rf2.ConceptRow)                           { r.row(row) }
func (r *Recorder) Description(row rf2.DescriptionRow)                   { r.row(row) }
func (r *Recorder) Relationship(row rf2.RelationshipRow)                 { r.row(row) }
func (r *Recorder) ConcreteRelationship(row rf2.ConcreteRelationshipRow) { r.row(row) }
func (r *Recorder) Identifier(row rf2.IdentifierRow)                     { r.row(row) }
func (r *Recorder) RefsetMember(row rf2.RefsetMemberRow)                 { r.row(row) }

// Events returns the lifecycle calls received, in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Rows returns every data row received, in arrival order.
func (r *Recorder) Rows() []rf2.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rf2.Row(nil), r.rows...)
}

// OfKind returns the received rows of one kind.
func (r *Recorder) OfKind(k rf2.Kind) []rf2.Row {
	var out []rf2.Row
	for _, row := range r.Rows() {
		if row.Kind() == k {
			out = append(out, row)
		}
	}
	return out
}

// Concepts returns the received concept rows.
func (r *Recorder) Concepts() []rf2.ConceptRow {
	var out []rf2.ConceptRow
	for _, row := range r.OfKind(rf2.KindConcept) {
		out = append(out, row.(rf2.ConceptRow))
	}
	return out
}
