// Package reconcile maps each poll's client list onto a stable set of visual
// entities, keeping per-entity history and redrawing charts.
package reconcile

import (
	"wifiwatch-tui/internal/chart"
	"wifiwatch-tui/internal/client"
	"wifiwatch-tui/internal/history"
)

// Entity is the rendered form of one tracked client.
type Entity interface {
	SetLabel(label string)
	SetSignalText(text string)
	// SetBand activates band and deactivates every other band.
	SetBand(band client.Band)
	// Surface returns nil when no drawing surface is available.
	Surface() chart.Surface
	Detach()
}

// Factory creates the entity for an id seen for the first time.
type Factory interface {
	NewEntity(id, name string) Entity
}

type FactoryFunc func(id, name string) Entity

func (f FactoryFunc) NewEntity(id, name string) Entity {
	return f(id, name)
}

type Result struct {
	Created []string
	Updated []string
	Removed []string
	Samples int
	Seen    int
}

// Reconciler owns the entity registry and the history store and keeps them in
// lockstep. It is not safe for concurrent use.
type Reconciler struct {
	factory  Factory
	entities map[string]Entity
	order    []string
	history  *history.Store

	lastSeq uint64
	applied bool
}

type Option func(*Reconciler)

func WithHistoryLimit(limit int) Option {
	return func(r *Reconciler) {
		r.history = history.NewStore(limit)
	}
}

func New(factory Factory, opts ...Option) *Reconciler {
	r := &Reconciler{
		factory:  factory,
		entities: map[string]Entity{},
		history:  history.NewStore(history.MaxSamples),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply reconciles records only if seq is newer than every previously applied
// sequence. Stale results are dropped untouched.
func (r *Reconciler) Apply(seq uint64, records []client.Record) (Result, bool) {
	if r.applied && seq <= r.lastSeq {
		return Result{}, false
	}
	r.applied = true
	r.lastSeq = seq
	return r.Reconcile(records), true
}

func (r *Reconciler) LastSequence() uint64 {
	return r.lastSeq
}

// Reconcile creates, updates and removes entities so the registry matches
// records. When an id repeats within records, the later record wins.
func (r *Reconciler) Reconcile(records []client.Record) Result {
	var result Result
	seen := make(map[string]struct{}, len(records))
	for idx, rec := range records {
		identity := client.Resolve(rec, idx)
		reading := client.Interpret(rec)

		seen[identity.ID] = struct{}{}

		entity, ok := r.entities[identity.ID]
		if !ok {
			r.history.Get(identity.ID)
			entity = r.factory.NewEntity(identity.ID, identity.Name)
			r.entities[identity.ID] = entity
			r.order = append(r.order, identity.ID)
			result.Created = append(result.Created, identity.ID)
		} else {
			result.Updated = append(result.Updated, identity.ID)
		}

		entity.SetLabel(identity.Name)
		entity.SetSignalText(client.FormatReading(reading))
		entity.SetBand(client.Classify(reading))

		if r.history.Append(identity.ID, reading) {
			result.Samples++
		}
		chart.Render(entity.Surface(), r.history.Get(identity.ID))
	}
	result.Seen = len(seen)

	kept := r.order[:0]
	for _, id := range r.order {
		if _, ok := seen[id]; ok {
			kept = append(kept, id)
			continue
		}
		if entity := r.entities[id]; entity != nil {
			entity.Detach()
		}
		delete(r.entities, id)
		r.history.Remove(id)
		result.Removed = append(result.Removed, id)
	}
	r.order = kept
	return result
}

func (r *Reconciler) Len() int {
	return len(r.entities)
}

// IDs returns the registered ids in first-seen order.
func (r *Reconciler) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

func (r *Reconciler) Entity(id string) (Entity, bool) {
	entity, ok := r.entities[id]
	return entity, ok
}

// History returns a copy of the samples kept for a registered id.
func (r *Reconciler) History(id string) ([]float64, bool) {
	if _, ok := r.entities[id]; !ok {
		return nil, false
	}
	return r.history.Get(id), true
}

func (r *Reconciler) HistoryLimit() int {
	return r.history.Limit()
}
