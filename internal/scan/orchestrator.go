// Package scan walks organizations and their repositories, reusing cached
// records where it can and querying the feature scanners where it must.
//
// Processing is sequential and deterministic: organizations in the given
// order, repositories in listing order. The per-organization cache is written
// every FlushFrequency fetched repositories and once more whenever the
// organization ends, including on interruption.
package scan

import (
	"context"
	"errors"

	"ghasexport/internal/cachestore"
	"ghasexport/internal/logging"
	"ghasexport/internal/output"
	"ghasexport/internal/record"
	"ghasexport/internal/scanner"

	"github.com/m-mizutani/goerr/v2"
)

// RepositoryLister returns an organization's repositories in listing order.
type RepositoryLister interface {
	ListRepositories(ctx context.Context, org string) ([]record.Ref, error)
}

// EventWriter receives progress events.
type EventWriter interface {
	Write(e output.Event) error
}

type Options struct {
	// FlushFrequency is the number of fetched repositories between cache
	// writes. Values below 1 flush after every repository.
	FlushFrequency int
	// IgnoreCachedErrors re-fetches repositories whose cached record is errored.
	IgnoreCachedErrors bool
	// Debug turns organization-level failures into fatal ones.
	Debug bool
}

// Result is what a run accumulated, in organization-then-repository order.
type Result struct {
	Records     []record.Record
	Errored     int
	FailedOrgs  []string
	Interrupted bool
}

func (r *Result) add(rec record.Record) {
	r.Records = append(r.Records, rec)
	if rec.IsError() {
		r.Errored++
	}
}

type Orchestrator struct {
	lister   RepositoryLister
	scanners []scanner.Scanner
	store    cachestore.Store
	events   EventWriter
	opts     Options
}

func New(lister RepositoryLister, scanners []scanner.Scanner, store cachestore.Store, events EventWriter, opts Options) *Orchestrator {
	if opts.FlushFrequency < 1 {
		opts.FlushFrequency = 1
	}
	return &Orchestrator{
		lister:   lister,
		scanners: scanners,
		store:    store,
		events:   events,
		opts:     opts,
	}
}

// Run processes orgs in order. The returned Result is never nil and holds
// everything collected so far, also when an error is returned or the run was
// interrupted. The error is non-nil only for fatal failures.
func (o *Orchestrator) Run(ctx context.Context, orgs []string) (*Result, error) {
	res := &Result{}
	logger := logging.From(ctx)

	o.emit(ctx, output.Event{Type: output.EventRunStarted, Orgs: len(orgs)})
	defer func() {
		o.emit(ctx, output.Event{Type: output.EventRunFinished, Repos: len(res.Records), Errored: res.Errored})
	}()

	for _, org := range orgs {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		out := o.runOrg(ctx, org, res)
		switch out.Kind {
		case OutcomeOK:
			continue
		case OutcomeRecoverable:
			logger.Error("failed to process organization", "org", org, "error", out.Err)
			res.FailedOrgs = append(res.FailedOrgs, org)
			o.emit(ctx, output.Event{Type: output.EventOrgFailed, Org: org, Message: out.Err.Error()})
		case OutcomeCancelled:
			logger.Warn("interrupted", "org", org)
			res.Interrupted = true
			return res, nil
		case OutcomeFatal:
			o.emit(ctx, output.Event{Type: output.EventOrgFailed, Org: org, Message: out.Err.Error()})
			return res, out.Err
		}
	}
	return res, nil
}

func (o *Orchestrator) runOrg(ctx context.Context, org string, res *Result) Outcome {
	logger := logging.From(ctx).With("org", org)

	cache, err := o.store.Load(ctx, org)
	if err != nil {
		return o.orgFailure(ctx, goerr.Wrap(err, "failed to load cache", goerr.V("org", org)))
	}
	if cache == nil {
		cache = cachestore.Cache{}
	}

	refs, err := o.lister.ListRepositories(ctx, org)
	if err != nil {
		out := o.orgFailure(ctx, goerr.Wrap(err, "failed to list repositories", goerr.V("org", org)))
		if ferr := o.flush(context.WithoutCancel(ctx), org, cache); ferr != nil {
			return fatal(ferr)
		}
		return out
	}

	logger.Info("processing organization", "repositories", len(refs))
	o.emit(ctx, output.Event{Type: output.EventOrgStarted, Org: org, Repos: len(refs)})

	before, erroredBefore := len(res.Records), res.Errored
	out := o.walk(ctx, org, refs, cache, res)

	// The final flush must happen even when ctx is already cancelled.
	if err := o.flush(context.WithoutCancel(ctx), org, cache); err != nil && out.Kind != OutcomeFatal {
		out = fatal(err)
	}

	if out.Kind == OutcomeOK {
		o.emit(ctx, output.Event{
			Type:    output.EventOrgFinished,
			Org:     org,
			Repos:   len(res.Records) - before,
			Errored: res.Errored - erroredBefore,
		})
	}
	return out
}

func (o *Orchestrator) walk(ctx context.Context, org string, refs []record.Ref, cache cachestore.Cache, res *Result) Outcome {
	fetched := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		if cached, ok := cache[ref.Name]; ok {
			if !cached.IsError() || !o.opts.IgnoreCachedErrors {
				res.add(cached)
				o.emit(ctx, output.Event{Type: output.EventRepoCached, Org: org, Repo: cached.Ref().FullName(), Status: string(cached.Status())})
				continue
			}
			o.emit(ctx, output.Event{Type: output.EventRepoRetry, Org: org, Repo: ref.FullName()})
		}

		o.emit(ctx, output.Event{Type: output.EventRepoFetching, Org: org, Repo: ref.FullName()})
		rec, err := o.fetch(ctx, ref)
		if err != nil {
			// Interrupted mid-fetch: the partial record is dropped so the
			// repository is fetched from scratch on the next run.
			return cancelled(err)
		}

		res.add(rec)
		cache[ref.Name] = rec
		o.emit(ctx, output.Event{Type: output.EventRepoFetched, Org: org, Repo: ref.FullName(), Status: string(rec.Status()), Message: rec.Error})

		fetched++
		if fetched >= o.opts.FlushFrequency {
			// An interrupt arriving here must not fail the write; the loop
			// notices it on the next iteration.
			if err := o.flush(context.WithoutCancel(ctx), org, cache); err != nil {
				return fatal(err)
			}
			fetched = 0
		}
	}
	return okOutcome()
}

// fetch queries every scanner in order. A scanner failure stops the fetch and
// is recorded on the record; later features stay pending. The only error
// returned is cancellation.
func (o *Orchestrator) fetch(ctx context.Context, ref record.Ref) (record.Record, error) {
	rec := record.New(ref)
	for _, s := range o.scanners {
		res, err := query(ctx, s, ref)
		if err != nil {
			if isCancellation(ctx, err) {
				return rec, err
			}
			logging.From(ctx).Error("failed to get alerts",
				"repo", ref.FullName(),
				"feature", string(s.Feature()),
				"error", err,
			)
			rec.Error = err.Error()
			return rec, nil
		}
		rec.Set(s.Feature(), res)
	}
	return rec, nil
}

func query(ctx context.Context, s scanner.Scanner, ref record.Ref) (record.FeatureResult, error) {
	enabled, err := s.IsEnabled(ctx, ref)
	if err != nil {
		return record.FeatureResult{}, err
	}
	if !enabled {
		return record.Disabled(), nil
	}
	n, err := s.CountAlerts(ctx, ref)
	if err != nil {
		return record.FeatureResult{}, err
	}
	return record.Counted(n), nil
}

func (o *Orchestrator) flush(ctx context.Context, org string, cache cachestore.Cache) error {
	if err := o.store.Save(ctx, org, cache); err != nil {
		return goerr.Wrap(err, "failed to save cache", goerr.V("org", org))
	}
	logging.From(ctx).Debug("cache saved", "org", org, "path", o.store.Path(org), "records", len(cache))
	o.emit(ctx, output.Event{Type: output.EventCacheFlushed, Org: org, Path: o.store.Path(org), Repos: len(cache)})
	return nil
}

func (o *Orchestrator) orgFailure(ctx context.Context, err error) Outcome {
	switch {
	case isCancellation(ctx, err):
		return cancelled(err)
	case o.opts.Debug:
		return fatal(err)
	default:
		return recoverable(err)
	}
}

func (o *Orchestrator) emit(ctx context.Context, e output.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Write(e); err != nil {
		logging.From(ctx).Warn("failed to write progress event", "type", e.Type, "error", err)
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || ctx.Err() != nil
}
