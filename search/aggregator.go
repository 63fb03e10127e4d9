// Package search fans a query out to the selected catalogs and merges the results.
package search

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modpack-launcher/catalog"
	"modpack-launcher/model"
)

type Aggregator struct {
	catalogs catalog.Registry
	log      *zap.SugaredLogger
}

func NewAggregator(catalogs catalog.Registry, log *zap.SugaredLogger) *Aggregator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Aggregator{catalogs: catalogs, log: log}
}

// SearchAll queries every selected catalog concurrently and returns the
// concatenated results ordered by download count, highest first. Equal counts
// keep the order the catalogs were selected in. Results from a healthy catalog
// are still returned when another one fails; the failures are joined into err.
func (a *Aggregator) SearchAll(ctx context.Context, query, gameVersion string, sources []model.Source) ([]model.ModRef, error) {
	sources = dedupe(sources)
	if len(sources) == 0 {
		return []model.ModRef{}, nil
	}

	clients := make([]catalog.Client, len(sources))
	for i, s := range sources {
		c, err := a.catalogs.Get(s)
		if err != nil {
			return nil, err
		}
		clients[i] = c
	}

	perSource := make([][]model.ModRef, len(clients))
	errs := make([]error, len(clients))
	// The group never returns an error: a failing catalog must not cancel its sibling.
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		i, c := i, c
		g.Go(func() error {
			refs, err := c.Search(gctx, query, gameVersion)
			perSource[i] = refs
			errs[i] = err
			if err != nil {
				a.log.Warnw("Catalog search failed",
					zap.String("source", string(c.Source())),
					zap.String("query", query),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.ModRef
	for _, refs := range perSource {
		merged = append(merged, refs...)
	}
	if merged == nil {
		merged = []model.ModRef{}
	}
	SortByDownloads(merged)

	a.log.Infow("Search finished",
		zap.String("query", query),
		zap.String("game_version", gameVersion),
		zap.Int("results", len(merged)),
	)
	return merged, errors.Join(errs...)
}

// SortByDownloads orders refs by download count, descending, keeping ties stable.
func SortByDownloads(refs []model.ModRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].DownloadCount > refs[j].DownloadCount
	})
}

func dedupe(sources []model.Source) []model.Source {
	seen := make(map[model.Source]bool, len(sources))
	out := make([]model.Source, 0, len(sources))
	for _, s := range sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
