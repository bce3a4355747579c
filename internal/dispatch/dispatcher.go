package dispatch

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nanogate/imagegate/internal/config"
	"github.com/nanogate/imagegate/internal/credential"
	"github.com/nanogate/imagegate/internal/router"
)

// Options are request-scoped overrides. They travel with the call instead
// of being patched into shared config, so concurrent dispatches never see
// each other's settings.
type Options struct {
	Model           string
	Size            string
	Quality         string
	ReferenceImages []string

	// CredentialOverride short-circuits the credential pool to exactly
	// this key (bring-your-own-credential mode).
	CredentialOverride string

	// BaseURLOverride points this one dispatch at a different provider.
	BaseURLOverride string
}

// Dispatcher is the upstream face of the dispatch core: one call in, one
// image reference (or an explicit failure) out.
type Dispatcher struct {
	config   *config.Manager
	failover *Failover
}

func NewDispatcher(cfg *config.Manager, failover *Failover) *Dispatcher {
	return &Dispatcher{
		config:   cfg,
		failover: failover,
	}
}

// Generate dispatches one image generation and returns the image
// reference (URL or inline data URI).
func (d *Dispatcher) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	snap := d.config.Snapshot()

	req := router.GenerateRequest{
		Prompt:          prompt,
		Model:           firstNonEmpty(opts.Model, snap.API.Model),
		Size:            firstNonEmpty(opts.Size, snap.Image.Size),
		Quality:         firstNonEmpty(opts.Quality, snap.Image.Quality),
		ReferenceImages: opts.ReferenceImages,
	}

	rt := router.New(snap.Auth.ModelRules.ChatOnlyModels)
	route, err := rt.Build(req)
	if err != nil {
		return "", err
	}

	pool := credential.Resolve(snap, req.Model, opts.CredentialOverride)

	body, err := d.failover.Do(ctx, d.request(snap, opts.BaseURLOverride, route), pool)
	if err != nil {
		return "", err
	}

	ref, err := rt.Extract(route.Kind, body)
	if err != nil {
		return "", err
	}
	if ref == "" {
		return "", ErrNoImageReference
	}

	return ref, nil
}

// OptimizePrompt asks the configured language model to rewrite a raw
// prompt into a richer description. Best effort: any failure falls back
// to the original prompt.
func (d *Dispatcher) OptimizePrompt(ctx context.Context, prompt, subject string) string {
	snap := d.config.Snapshot()

	targetModel := snap.API.Model
	body, err := router.BuildOptimizeRequest(snap.API.OptimizeModel, prompt, subject, targetModel)
	if err != nil {
		return prompt
	}

	route := router.Route{Kind: router.KindChatCompletion, Endpoint: router.ChatEndpoint, Body: body}
	pool := credential.Resolve(snap, snap.API.OptimizeModel, "")

	respBody, err := d.failover.Do(ctx, d.request(snap, "", route), pool)
	if err != nil {
		log.Printf("Prompt optimization failed, using original prompt: %v", err)
		return prompt
	}

	return router.CleanOptimized(respBody, prompt)
}

func (d *Dispatcher) request(snap *config.Config, baseOverride string, route router.Route) Request {
	base := strings.TrimRight(firstNonEmpty(baseOverride, snap.API.BaseURL), "/")

	return Request{
		URL:        base + route.Endpoint,
		Body:       route.Body,
		Timeout:    time.Duration(snap.API.TimeoutSeconds) * time.Second,
		MaxRetries: snap.API.MaxRetries,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
