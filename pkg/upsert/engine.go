package upsert

import (
	"context"
	"fmt"

	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// PersistenceError is a failed write of one record.
type PersistenceError struct {
	SourceID string
	Op       string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.SourceID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type Result struct {
	// Total counts records written, inserts and updates alike.
	Total int
	// Created holds newly inserted events in insertion order.
	Created []*models.Event
	Updated int
	Failed  int
}

// Engine reconciles normalized events against the store by SourceID.
// Each record is committed on its own, so a failure never undoes records
// already written.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) Reconcile(ctx context.Context, events []*models.Event) Result {
	lg := logging.FromContext(ctx)
	res := Result{Created: make([]*models.Event, 0)}
	// A key inserted earlier in this batch keeps its single slot in Created;
	// later duplicates replace it.
	createdAt := make(map[string]int)

	for _, ev := range events {
		saved, created, err := e.reconcileOne(ctx, ev)
		if err != nil {
			res.Failed++
			lg.Error("upsert.failed", zap.String("source_id", ev.SourceID), zap.Error(err))
			continue
		}
		res.Total++
		if created {
			createdAt[saved.SourceID] = len(res.Created)
			res.Created = append(res.Created, saved)
			continue
		}
		res.Updated++
		if i, ok := createdAt[saved.SourceID]; ok {
			res.Created[i] = saved
		}
	}

	if res.Failed > 0 {
		lg.Warn("upsert.partial_batch",
			zap.Int("written", res.Total),
			zap.Int("failed", res.Failed))
	}
	return res
}

func (e *Engine) reconcileOne(ctx context.Context, ev *models.Event) (*models.Event, bool, error) {
	existing, err := e.store.FindBySourceID(ctx, ev.SourceID)
	switch {
	case err == nil:
		saved, err := e.replace(ctx, existing, ev)
		return saved, false, err
	case !errors.Is(err, database.ErrNotFound):
		return nil, false, &PersistenceError{SourceID: ev.SourceID, Op: "find", Err: err}
	}

	inserted, err := e.store.Insert(ctx, ev)
	if err == nil {
		return inserted, true, nil
	}
	if !database.IsKeyConflictErr(err) {
		return nil, false, &PersistenceError{SourceID: ev.SourceID, Op: "insert", Err: err}
	}

	// Another writer inserted the same key first; overwrite its row instead.
	logging.FromContext(ctx).Info("upsert.conflict_as_update", zap.String("source_id", ev.SourceID))
	existing, err = e.store.FindBySourceID(ctx, ev.SourceID)
	if err != nil {
		return nil, false, &PersistenceError{SourceID: ev.SourceID, Op: "refetch", Err: err}
	}
	saved, err := e.replace(ctx, existing, ev)
	return saved, false, err
}

func (e *Engine) replace(ctx context.Context, existing, ev *models.Event) (*models.Event, error) {
	existing.ReplaceWith(ev)
	saved, err := e.store.Update(ctx, existing)
	if err != nil {
		return nil, &PersistenceError{SourceID: ev.SourceID, Op: "update", Err: err}
	}
	return saved, nil
}
