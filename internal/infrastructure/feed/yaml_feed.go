// Package feed reads third-party platform orders for reconciliation.
package feed

import (
	"context"
	"strings"

	"o2o/internal/commons"
	"o2o/internal/domain"
)

type feedFile struct {
	Orders []domain.ExternalOrder `yaml:"orders"`
}

// YAMLFeed serves platform orders from a file dropped by the platform export
// job. The file is re-read on every fetch.
type YAMLFeed struct {
	path      string
	platforms map[string]bool
}

// NewYAMLFeed keeps only orders from platforms; no platforms means all of them.
func NewYAMLFeed(path string, platforms ...string) *YAMLFeed {
	f := &YAMLFeed{path: path}
	if len(platforms) > 0 {
		f.platforms = make(map[string]bool, len(platforms))
		for _, p := range platforms {
			f.platforms[strings.ToLower(p)] = true
		}
	}
	return f
}

func (f *YAMLFeed) FetchPending(ctx context.Context) ([]domain.ExternalOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file feedFile
	if err := commons.LoadYAML(f.path, &file); err != nil {
		return nil, err
	}

	orders := make([]domain.ExternalOrder, 0, len(file.Orders))
	for _, o := range file.Orders {
		if f.platforms != nil && !f.platforms[strings.ToLower(o.Platform)] {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}
