// Package catalog defines the contract every mod catalog client satisfies and the
// HTTP plumbing they share. Catalog specific JSON shapes never leave the client
// packages; everything crossing this boundary is a model type.
package catalog

import (
	"context"
	"io"
	"sort"

	"modpack-launcher/model"
)

// Client talks to one external mod catalog.
type Client interface {
	Source() model.Source
	// Search returns an empty slice on transport failures. Only a rejected or
	// missing credential is reported as an error.
	Search(ctx context.Context, query, gameVersion string) ([]model.ModRef, error)
	// ListFiles returns candidates ordered most-recent-first. Failure handling
	// matches Search.
	ListFiles(ctx context.Context, modID, gameVersion string) ([]model.ModFileCandidate, error)
	// Fetch opens a download stream. Unlike the listing calls it always reports failures.
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Lookup is implemented by catalogs that can describe a single mod by id.
type Lookup interface {
	Lookup(ctx context.Context, modID string) (model.ModRef, error)
}

// LookupError maps a failed single-mod request: credential problems keep
// their meaning, anything else is a transport failure.
func LookupError(source model.Source, modID string, err error) error {
	if IsAuthFailure(err) {
		return model.NewInvalidCatalogCredentialError(source, err)
	}
	if _, ok := model.AsError(err); ok {
		return err
	}
	return model.NewTransportError("could not look up "+string(source)+" mod "+modID, err)
}

// SortNewestFirst orders candidates by publish date, keeping catalog order for ties.
func SortNewestFirst(files []model.ModFileCandidate) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].PublishedAt.After(files[j].PublishedAt)
	})
}

// Registry resolves the client responsible for a source.
type Registry map[model.Source]Client

func NewRegistry(clients ...Client) Registry {
	r := make(Registry, len(clients))
	for _, c := range clients {
		r[c.Source()] = c
	}
	return r
}

func (r Registry) Get(source model.Source) (Client, error) {
	c, ok := r[source]
	if !ok {
		return nil, model.NewInvalidInputError("no catalog client configured for "+string(source), nil)
	}
	return c, nil
}
