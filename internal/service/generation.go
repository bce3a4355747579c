package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/dispatch"
	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/quota"
	"github.com/nanogate/imagegate/internal/repository"
	"github.com/nanogate/imagegate/internal/router"
)

// ErrGenerationFailed is what callers see for any provider-side failure.
// Status and body detail stays in the server log.
var ErrGenerationFailed = errors.New("image generation failed")

// DeniedError carries an actionable quota or rate denial message, distinct
// from provider failures.
type DeniedError struct {
	Reason    string
	Remaining int
}

func (e *DeniedError) Error() string {
	return e.Reason
}

// Point costs per model class. The chat-only image family is the heavy
// class; everything else costs one point.
const (
	heavyModelCost   = 2
	defaultModelCost = 1
)

// Identity is either an authenticated account or a caller IP.
type Identity struct {
	AccountID *uuid.UUID
	IP        string
}

type GenerateResult struct {
	ImageRef  string
	Model     string
	Cost      int
	Remaining int
}

// GenerationService runs the full flow: access decision, dispatch, then
// charge and record on success only.
type GenerationService struct {
	dispatcher  *dispatch.Dispatcher
	ledger      *quota.Ledger
	gate        *quota.RateGate
	generations *repository.GenerationRepository
	defaultsFor func() (model string)
	onCharged   func(ctx context.Context, accountID uuid.UUID)
}

func NewGenerationService(
	dispatcher *dispatch.Dispatcher,
	ledger *quota.Ledger,
	gate *quota.RateGate,
	generations *repository.GenerationRepository,
	defaultModel func() string,
) *GenerationService {
	return &GenerationService{
		dispatcher:  dispatcher,
		ledger:      ledger,
		gate:        gate,
		generations: generations,
		defaultsFor: defaultModel,
	}
}

// OnCharged registers a hook run after a successful charge (cache
// invalidation lives there so this package stays redis-free).
func (s *GenerationService) OnCharged(fn func(ctx context.Context, accountID uuid.UUID)) {
	s.onCharged = fn
}

// ModelClassCost returns the point cost for a target model.
func (s *GenerationService) ModelClassCost(model string) int {
	if router.New(nil).IsChatOnly(model) {
		return heavyModelCost
	}
	return defaultModelCost
}

// AuthorizeAndCost consults the ledger or the rate gate depending on the
// identity and returns the decision together with the point cost.
func (s *GenerationService) AuthorizeAndCost(ctx context.Context, id Identity, model string) (quota.Decision, error) {
	if id.AccountID != nil {
		cost := s.ModelClassCost(model)
		return s.ledger.Authorize(ctx, *id.AccountID, cost)
	}

	return s.gate.CheckLimit(ctx, id.IP)
}

// Generate authorizes, dispatches and, only on success, charges the
// identity and records the generation.
func (s *GenerationService) Generate(ctx context.Context, id Identity, prompt string, opts dispatch.Options) (*GenerateResult, error) {
	model := opts.Model
	if model == "" {
		model = s.defaultsFor()
	}

	decision, err := s.AuthorizeAndCost(ctx, id, model)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &DeniedError{Reason: decision.Reason, Remaining: decision.Remaining}
	}

	imageRef, err := s.dispatcher.Generate(ctx, prompt, opts)
	if err != nil {
		log.Printf("Dispatch failed for model %s: %v", model, err)
		return nil, ErrGenerationFailed
	}

	if err := s.ChargeUsage(ctx, id, decision.Cost); err != nil {
		// The image exists; losing the charge is logged, not surfaced.
		log.Printf("Failed to charge usage for %s: %v", identityLabel(id), err)
	}

	s.record(ctx, id, model, prompt, imageRef, decision.Cost)

	return &GenerateResult{
		ImageRef:  imageRef,
		Model:     model,
		Cost:      decision.Cost,
		Remaining: decision.Remaining,
	}, nil
}

// ChargeUsage books cost points against an account, or appends one usage
// entry for an anonymous IP. Call only after a successful dispatch.
func (s *GenerationService) ChargeUsage(ctx context.Context, id Identity, cost int) error {
	if id.AccountID != nil {
		if err := s.ledger.Charge(ctx, *id.AccountID, cost); err != nil {
			return err
		}
		if s.onCharged != nil {
			s.onCharged(ctx, *id.AccountID)
		}
		return nil
	}

	return s.gate.RecordUsage(ctx, id.IP)
}

func (s *GenerationService) record(ctx context.Context, id Identity, model, prompt, imageRef string, cost int) {
	generation := &models.Generation{
		AccountID: id.AccountID,
		IP:        id.IP,
		Model:     model,
		Prompt:    prompt,
		ImageRef:  imageRef,
		PointCost: cost,
		Timestamp: time.Now().UTC(),
	}

	if err := s.generations.Create(ctx, generation); err != nil {
		log.Printf("Failed to record generation: %v", err)
	}
}

func identityLabel(id Identity) string {
	if id.AccountID != nil {
		return "account " + id.AccountID.String()
	}
	return "ip " + id.IP
}
