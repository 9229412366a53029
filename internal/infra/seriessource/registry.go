package seriessource

import (
	"fmt"
	"sort"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
)

// Registry resolves dataset ids to configured sources.
type Registry struct {
	defaultID string
	datasets  map[string]analysis.Dataset
}

// NewRegistry indexes datasets by id. defaultID must name one of them.
func NewRegistry(defaultID string, datasets ...analysis.Dataset) (*Registry, error) {
	index := make(map[string]analysis.Dataset, len(datasets))
	for _, ds := range datasets {
		if ds.ID == "" || ds.Source == nil {
			return nil, fmt.Errorf("dataset needs an id and a source")
		}
		if _, dup := index[ds.ID]; dup {
			return nil, fmt.Errorf("duplicate dataset id %q", ds.ID)
		}
		index[ds.ID] = ds
	}
	if _, ok := index[defaultID]; !ok {
		return nil, fmt.Errorf("default dataset %q is not configured", defaultID)
	}
	return &Registry{defaultID: defaultID, datasets: index}, nil
}

// Dataset implements analysis.Catalog.
func (r *Registry) Dataset(id string) (analysis.Dataset, bool) {
	if id == "" {
		id = r.defaultID
	}
	ds, ok := r.datasets[id]
	return ds, ok
}

// IDs lists the configured ids in order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.datasets))
	for id := range r.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ analysis.Catalog = (*Registry)(nil)
