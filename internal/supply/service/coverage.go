// Package service wires the pure supply engines to storage, scopes and
// events.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medflow/medflow-supply/internal/supply/coverage"
	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/internal/supply/scope"
	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/errors"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/metrics"
)

// RecordStore loads supply records.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*domain.SupplyRecord, error)
}

// ScopeStore reads the cached line restriction of a user.
type ScopeStore interface {
	Get(ctx context.Context, userID string) (categories []int, found bool, err error)
}

// Caller identifies who asks for a recompute. LineCategories is nil when the
// token carried no restriction claim.
type Caller struct {
	UserID         string
	LineCategories []int
}

// RecomputeResult is a scoped recompute of one record.
type RecomputeResult struct {
	RecordID string            `json:"record_id"`
	Period   string            `json:"period"`
	Strategy coverage.Strategy `json:"strategy"`
	// Scope lists the visible line categories; empty means unrestricted.
	Scope       []int               `json:"scope"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
	scope.Result
}

// CoverageService recomputes record summaries for the caller's scope.
type CoverageService struct {
	records      RecordStore
	scopes       ScopeStore
	strategy     coverage.Strategy
	trackKitchen bool
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// NewCoverageService creates a new coverage service
func NewCoverageService(records RecordStore, scopes ScopeStore, cfg *config.SupplyConfig, m *metrics.Metrics, log *logger.Logger) (*CoverageService, error) {
	strategy, err := coverage.ParseStrategy(cfg.CoverageStrategy)
	if err != nil {
		return nil, fmt.Errorf("coverage service: %w", err)
	}

	return &CoverageService{
		records:      records,
		scopes:       scopes,
		strategy:     strategy,
		trackKitchen: cfg.TrackKitchenStock,
		metrics:      m,
		logger:       log,
	}, nil
}

// ResolveScope returns the caller's permission scope. A claim on the token
// wins over the cached scope; a caller known to neither is unrestricted.
func (s *CoverageService) ResolveScope(ctx context.Context, caller Caller) (domain.PermissionScope, error) {
	if caller.LineCategories != nil {
		return domain.NewPermissionScope(caller.LineCategories...), nil
	}
	if caller.UserID == "" {
		return domain.PermissionScope{}, nil
	}

	categories, found, err := s.scopes.Get(ctx, caller.UserID)
	if err != nil {
		return domain.PermissionScope{}, fmt.Errorf("resolve scope for %s: %w", caller.UserID, err)
	}
	if !found {
		return domain.PermissionScope{}, nil
	}
	return domain.NewPermissionScope(categories...), nil
}

// GetRecord returns the record as stored, including the precomputed
// unfiltered summaries.
func (s *CoverageService) GetRecord(ctx context.Context, id string) (*domain.SupplyRecord, error) {
	return s.records.GetByID(ctx, id)
}

// Recompute filters the record's items by the caller's scope and derives the
// summary and coverage from the survivors. An empty strategy uses the
// configured default.
func (s *CoverageService) Recompute(ctx context.Context, id string, caller Caller, strategy string) (*RecomputeResult, error) {
	return s.recompute(ctx, id, caller, strategy, nil)
}

// RecomputeEdited is Recompute over a copy of the record's items with the
// edits applied. The stored record is not changed.
func (s *CoverageService) RecomputeEdited(ctx context.Context, id string, caller Caller, strategy string, edits []ItemEdit) (*RecomputeResult, error) {
	return s.recompute(ctx, id, caller, strategy, edits)
}

func (s *CoverageService) recompute(ctx context.Context, id string, caller Caller, rawStrategy string, edits []ItemEdit) (*RecomputeResult, error) {
	strategy, err := s.parseStrategy(rawStrategy)
	if err != nil {
		return nil, err
	}

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ps, err := s.ResolveScope(ctx, caller)
	if err != nil {
		return nil, err
	}

	items := rec.Items
	var diags []domain.Diagnostic
	if edits != nil {
		items, diags, err = ApplyEdits(rec.Items, edits)
		if err != nil {
			return nil, err
		}
		s.reportDiagnostics(id, diags)
	}

	start := time.Now()
	result := scope.Recompute(items, ps, scope.Options{Strategy: strategy, TrackKitchen: s.trackKitchen})
	s.metrics.ObserveRecompute(string(strategy), !ps.Unrestricted(), time.Since(start))

	s.logger.WithRecord(id).Debug().
		Str("strategy", string(strategy)).
		Ints("scope", ps.Categories()).
		Int("visible_items", len(result.Items)).
		Msg("coverage recomputed")

	return &RecomputeResult{
		RecordID:    rec.ID,
		Period:      rec.Period,
		Strategy:    strategy,
		Scope:       ps.Categories(),
		Diagnostics: diags,
		Result:      result,
	}, nil
}

func (s *CoverageService) parseStrategy(raw string) (coverage.Strategy, error) {
	if raw == "" {
		return s.strategy, nil
	}
	strategy, err := coverage.ParseStrategy(raw)
	if err != nil {
		return "", errors.BadRequest(err.Error())
	}
	return strategy, nil
}

func (s *CoverageService) reportDiagnostics(recordID string, diags []domain.Diagnostic) {
	log := s.logger.WithRecord(recordID)
	for _, d := range diags {
		s.metrics.CoercionDiagnostic(d.Field)
		log.Warn().
			Int("item_code", d.ItemCode).
			Str("field", d.Field).
			Str("value", d.Value).
			Msg("malformed numeric value replaced by 0")
	}
}
