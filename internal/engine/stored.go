// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/seed"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// VerdictStore persists verdicts by snapshot fingerprint.
// verdictstore.Store implements it.
type VerdictStore interface {
	Get(ctx context.Context, fingerprint string, now time.Time) (*types.ArticleVerdict, bool, error)
	Put(ctx context.Context, v *types.ArticleVerdict, now time.Time) error
}

// EvaluateStored returns the stored verdict for snap when one is still
// fresh and otherwise evaluates snap and stores the result. The bool
// reports whether the verdict came from the store. Store failures are
// logged and never fail the evaluation.
func (e *Engine) EvaluateStored(ctx context.Context, store VerdictStore, snap types.ContentSnapshot) (*types.ArticleVerdict, bool, error) {
	if err := snap.Validate(e.cfg.MaxTextBytes); err != nil {
		return nil, false, err
	}
	fp := seed.Fingerprint(snap)
	log := e.logger.With(zap.String("fingerprint", fp))

	v, ok, err := store.Get(ctx, fp, e.clock())
	switch {
	case err != nil:
		log.Warn("verdict store lookup failed", zap.Error(err))
	case ok:
		log.Debug("verdict store hit", zap.String("evaluation_id", v.EvaluationID))
		return v, true, nil
	}

	v, err = e.Evaluate(ctx, snap)
	if err != nil {
		return nil, false, err
	}
	if err := store.Put(ctx, v, e.clock()); err != nil {
		log.Warn("storing verdict", zap.Error(err))
	}
	return v, false, nil
}
