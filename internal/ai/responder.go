package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/apperr"
)

const DefaultTimeout = 8 * time.Second

// DefaultCallLimit bounds a provider call that outlived the reply deadline.
const DefaultCallLimit = 60 * time.Second

const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

type Reply struct {
	Text   string
	Source string

	// Category is set when the fallback answered because the provider failed.
	Category Category
}

// Notice is the user-visible explanation for a degraded reply, if any.
func (r Reply) Notice() string {
	switch r.Category {
	case CategoryAuth, CategoryRateLimit, CategoryProvider:
		return UserMessage(r.Category)
	default:
		return ""
	}
}

// Responder races one provider call against a deadline. A nil Provider means
// no credential was configured and every call is answered by the fallback.
type Responder struct {
	Provider  Provider
	Fallback  *Fallback
	Timeout   time.Duration
	CallLimit time.Duration
	Logger    zerolog.Logger
}

func NewResponder(p Provider, timeout time.Duration, logger zerolog.Logger) *Responder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Responder{
		Provider:  p,
		Fallback:  NewFallback(),
		Timeout:   timeout,
		CallLimit: DefaultCallLimit,
		Logger:    logger,
	}
}

type generateResult struct {
	text string
	err  error
}

// Respond returns a reply, or an *apperr.Error with CodeTimeout when the
// deadline passes first. A late provider result is discarded.
func (r *Responder) Respond(ctx context.Context, input string) (Reply, error) {
	if r.Provider == nil {
		cat := Classify(apperr.NewProviderUnavailable())
		r.Logger.Debug().Str("category", string(cat)).Msg("no ai provider, using fallback")
		return r.fallback(input, cat), nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := r.CallLimit
	if limit <= 0 {
		limit = DefaultCallLimit
	}
	if limit < timeout {
		limit = timeout
	}

	// The provider call is detached from ctx cancellation: on timeout it is
	// abandoned rather than cancelled, and the buffered channel lets it finish.
	// CallLimit still ends it.
	done := make(chan generateResult, 1)
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
	prompt := BuildPrompt(input)
	go func() {
		defer cancel()
		text, err := r.Provider.Generate(callCtx, prompt)
		done <- generateResult{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err == nil && strings.TrimSpace(res.text) == "" {
			res.err = apperr.NewProviderError(string(CategoryProvider), nil)
		}
		if res.err != nil {
			cat := Classify(res.err)
			r.Logger.Warn().Err(res.err).Str("category", string(cat)).Msg("ai provider failed, using fallback")
			return r.fallback(input, cat), nil
		}
		return Reply{Text: res.text, Source: SourceProvider}, nil
	case <-timer.C:
		r.Logger.Warn().Dur("timeout", timeout).Msg("ai provider timed out")
		return Reply{}, apperr.NewTimeout(timeout)
	case <-ctx.Done():
		return Reply{}, apperr.NewInternal(ctx.Err())
	}
}

func (r *Responder) fallback(input string, cat Category) Reply {
	f := r.Fallback
	if f == nil {
		f = NewFallback()
	}
	return Reply{Text: f.Reply(input), Source: SourceFallback, Category: cat}
}
