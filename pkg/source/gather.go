package source

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sambabib/versions-check/pkg/analyzer"
	"github.com/sambabib/versions-check/pkg/logger"
)

// DefaultConcurrency bounds in-flight requests when GatherOptions leaves it unset.
const DefaultConcurrency = 8

// GatherOptions tunes Gather.
type GatherOptions struct {
	Concurrency int
}

// FetchError is a failed lookup of one package in one source.
type FetchError struct {
	Source  string
	Package string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetching %s: %v", e.Source, e.Package, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Snapshot is the merged view of every source for one run.
type Snapshot struct {
	Available analyzer.Available
	Failures  []*FetchError
}

// Gather asks every source about every package concurrently, then folds
// the answers in source order so the snapshot does not depend on timing.
// Per-package failures are recorded in the snapshot; the returned error
// is only set when ctx is done.
func Gather(ctx context.Context, sources []Source, names []string, opts GatherOptions) (*Snapshot, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	type answer struct {
		releases []Release
		err      error
	}
	answers := make([][]answer, len(sources))

	var g errgroup.Group
	g.SetLimit(limit)
	for si, src := range sources {
		answers[si] = make([]answer, len(names))
		for ni, name := range names {
			g.Go(func() error {
				if ctx.Err() != nil {
					answers[si][ni].err = ctx.Err()
					return nil
				}
				logger.Debugf("Fetching versions of %s from %s", name, src.Name())
				releases, err := src.Versions(ctx, name)
				answers[si][ni] = answer{releases: releases, err: err}
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Available: make(analyzer.Available)}
	for si, src := range sources {
		set := make(analyzer.Available)
		for ni, name := range names {
			a := answers[si][ni]
			if a.err != nil {
				if !errors.Is(a.err, ErrNotFound) {
					snap.Failures = append(snap.Failures, &FetchError{Source: src.Name(), Package: name, Err: a.err})
				}
				continue
			}
			for _, r := range a.releases {
				set[name] = append(set[name], analyzer.AvailableVersion{
					Version: r.Version,
					Link:    r.Link,
					Source:  src.Name(),
				})
			}
		}
		snap.Available = analyzer.MergeAvailable(snap.Available, set)
	}
	return snap, nil
}
