// Package extract reads the raw retail datasets into tables: relational
// tables, CSV objects and files, the store details API and the date details JSON.
package extract

import (
	"context"
	"fmt"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// Source produces one raw table
type Source interface {
	Fetch(ctx context.Context) (*model.Table, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) (*model.Table, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context) (*model.Table, error) {
	return f(ctx)
}

// Catalog maps each dataset to the source it is extracted from
type Catalog map[model.DatasetKind]Source

// Lookup returns the source of a dataset
func (c Catalog) Lookup(kind model.DatasetKind) (Source, error) {
	src, ok := c[kind]
	if !ok {
		return nil, fmt.Errorf("no source configured for dataset %q", kind)
	}
	return src, nil
}
