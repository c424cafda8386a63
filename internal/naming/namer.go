// Package naming turns representative cluster excerpts into short
// human-readable theme names via a text-generation call, with a structurally
// different fallback prompt, deterministic parsing, and duplicate-name
// suppression.
package naming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/keypool"
)

const (
	namingMaxTokens   = 1025
	namingTemperature = 0.2

	// DefaultRotationBudget is how many credential rotations each prompt
	// attempt may consume.
	DefaultRotationBudget = 2

	systemPrompt = "You are a product analytics assistant. Respond only with valid JSON arrays."
)

// Generator sends a prompt to a text-generation provider using the given
// credential. Fails with a RateLimitedError (maps to a key-pool penalty and
// retry) or an UnavailableError (maps to a same-attempt retry).
type Generator interface {
	Generate(ctx context.Context, credential, system, prompt string, maxTokens int, temperature float64) (string, error)
}

// Namer names clusters with up to two structurally different prompt attempts.
// Repeated identical prompts tend to fail identically on a bad response; a
// reframed prompt has independent failure modes.
type Namer struct {
	pool      *keypool.Pool
	generator Generator
	provider  string
	rotations int
}

// NewNamer creates a namer that acquires credentials for provider from pool.
func NewNamer(pool *keypool.Pool, generator Generator, provider string) *Namer {
	return &Namer{
		pool:      pool,
		generator: generator,
		provider:  provider,
		rotations: DefaultRotationBudget,
	}
}

// FallbackName is the deterministic placeholder for position i (zero-based).
func FallbackName(i int) string {
	return fmt.Sprintf("Unclassified Theme %d", i+1)
}

// NameGroups returns exactly one name per group no matter how many generation
// attempts succeed. Rate-limited credentials are penalized and rotated; any
// other failure retries within the attempt's rotation budget. When both
// attempts across both rotations fail to produce a valid parse, every group
// gets its fallback name. Only pool exhaustion propagates as an error, since
// it signals an infrastructure outage rather than a content problem.
func (n *Namer) NameGroups(ctx context.Context, excerpts [][]string, homogeneous []bool) ([]string, error) {
	if len(excerpts) == 0 {
		return []string{}, nil
	}

	prompts := []string{
		buildThemePrompt(excerpts, homogeneous),
		buildProblemPrompt(excerpts),
	}

	for attempt, prompt := range prompts {
		names, err := n.tryPrompt(ctx, prompt, len(excerpts))
		if err != nil {
			return nil, err
		}

		if names != nil {
			return names, nil
		}

		slog.Warn("cluster naming attempt failed", "attempt", attempt+1, "groups", len(excerpts))
	}

	names := make([]string, len(excerpts))
	for i := range names {
		names[i] = FallbackName(i)
	}

	return names, nil
}

// tryPrompt runs one prompt through up to the rotation budget of credentials.
// Returns (nil, nil) when the attempt is abandoned, and an error only on
// pool exhaustion.
func (n *Namer) tryPrompt(ctx context.Context, prompt string, count int) ([]string, error) {
	for rotation := 0; rotation < n.rotations; rotation++ {
		credential, err := n.pool.Acquire(n.provider)
		if err != nil {
			if errors.Is(err, apperrors.ErrExhaustedPool) {
				return nil, err
			}

			return nil, fmt.Errorf("acquire %s credential: %w", n.provider, err)
		}

		raw, err := n.generator.Generate(ctx, credential, systemPrompt, prompt, namingMaxTokens, namingTemperature)
		if err != nil {
			if errors.Is(err, apperrors.ErrRateLimited) {
				n.pool.Penalize(n.provider, credential)
			}

			continue
		}

		names, err := parseNameArray(raw, count)
		if err != nil {
			slog.Debug("unparsable naming response", "error", err)
			continue
		}

		return names, nil
	}

	return nil, nil
}

// buildThemePrompt is the first attempt: name the theme of each group, with
// groups labeled FOCUSED or MIXED so mixed groups are asked for a common
// theme rather than a description of one dominant source.
func buildThemePrompt(excerpts [][]string, homogeneous []bool) string {
	var b strings.Builder

	b.WriteString("You are analysing user feedback for a product team.\n\n")
	b.WriteString("Below are groups of user feedback excerpts. Each group is a cluster of related issues.\n")
	b.WriteString("For each group, generate a short specific issue theme name (3-6 words, title case).\n")
	b.WriteString("Groups marked MIXED span several sources: find the common theme across them.\n")
	b.WriteString("Respond ONLY with a JSON array of strings. No explanation. No markdown.\n\n")

	for i, group := range excerpts {
		kind := "MIXED"
		if i < len(homogeneous) && homogeneous[i] {
			kind = "FOCUSED"
		}

		fmt.Fprintf(&b, "Group %d (%s):\n", i+1, kind)
		for _, e := range group {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// buildProblemPrompt is the second attempt, framed as a question with no
// homogeneity labels.
func buildProblemPrompt(excerpts [][]string) string {
	var b strings.Builder

	b.WriteString("For each numbered group of user feedback below, what is the single biggest problem users are reporting?\n")
	b.WriteString("Answer with a 3-6 word title-case phrase per group.\n")
	b.WriteString("Reply with a JSON array of strings only, one entry per group, in order.\n\n")

	for i, group := range excerpts {
		fmt.Fprintf(&b, "Group %d:\n", i+1)
		for _, e := range group {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// parseNameArray strips code-fence markers, locates the first bracketed
// array, and parses it as a strictly-typed list of strings. Accepts only
// responses with at least count elements, truncated to exactly count.
func parseNameArray(raw string, count int) ([]string, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, apperrors.NewMalformedResponseError("no bracketed array in response")
	}

	var names []string
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &names); err != nil {
		return nil, apperrors.NewMalformedResponseError("response array is not a list of strings: " + err.Error())
	}

	if len(names) < count {
		return nil, apperrors.NewMalformedResponseError(
			fmt.Sprintf("expected %d names, got %d", count, len(names)))
	}

	return names[:count], nil
}
