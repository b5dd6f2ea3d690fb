// Package metadata derives titles, summaries, tag suggestions and
// inkling drafts from raw content using a language model. Generation is
// best-effort: a failed model call degrades to sensible fallbacks
// instead of failing the write that asked for it.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/inklings/inklings/internal/graph"
)

// FallbackTitle is used when no title can be derived at all.
const FallbackTitle = "Untitled"

// maxTagSuggestions bounds how many tags a single item gets suggested.
const maxTagSuggestions = 5

// Completer produces a structured completion for a prompt, decoding the
// model output into out.
type Completer interface {
	Complete(ctx context.Context, prompt string, out any) error
}

// GenkitCompleter is the production Completer, backed by a genkit
// generation model.
type GenkitCompleter struct {
	g     *genkit.Genkit
	model string
}

// NewGenkitCompleter creates a Completer using the named model.
func NewGenkitCompleter(g *genkit.Genkit, model string) *GenkitCompleter {
	return &GenkitCompleter{g: g, model: model}
}

// Complete implements Completer.
func (c *GenkitCompleter) Complete(ctx context.Context, prompt string, out any) error {
	response, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.model),
		ai.WithPrompt(prompt),
		ai.WithOutputType(out),
	)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := response.Output(out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

// Result is the derived metadata for one piece of content.
type Result struct {
	Title   string
	Summary string
	Tags    []string
}

// Generator derives metadata through a Completer.
type Generator struct {
	completer Completer
	logger    *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(completer Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, logger: logger}
}

type metadataOutput struct {
	Title   string   `json:"title" jsonschema_description:"Short title for the content, at most eight words"`
	Summary string   `json:"summary" jsonschema_description:"One to two sentence summary"`
	Tags    []string `json:"tags" jsonschema_description:"Topical tags, lowercase, most relevant first"`
}

const metadataPrompt = `You are organizing a personal knowledge base.
Derive metadata for the content below.

Prefer reusing the user's existing tags when they fit; invent a new tag
only when none of them applies. Suggest at most %d tags.

Existing tags: %s

Title (may be empty): %s

Content:
%s`

// Generate derives a summary and tag suggestions for content, and a
// title when the author left it blank. A title the author wrote is kept
// verbatim; the model only ever fills the gap. existingTags are the
// user's current tag names, offered to the model for reuse. Generation
// never fails the caller: on error the given title (or FallbackTitle)
// comes back with no summary and no tags.
func (g *Generator) Generate(ctx context.Context, content, title string, existingTags []string) Result {
	title = strings.TrimSpace(title)

	fallback := Result{Title: title}
	if fallback.Title == "" {
		fallback.Title = FallbackTitle
	}

	prompt := fmt.Sprintf(metadataPrompt,
		maxTagSuggestions, strings.Join(existingTags, ", "), title, content)

	var out metadataOutput
	if err := g.completer.Complete(ctx, prompt, &out); err != nil {
		g.logger.Warn("metadata generation failed, using fallbacks", "error", err)
		return fallback
	}

	res := Result{
		Title:   title,
		Summary: strings.TrimSpace(out.Summary),
		Tags:    normalizeTags(out.Tags),
	}
	if res.Title == "" {
		res.Title = strings.TrimSpace(out.Title)
	}
	if res.Title == "" {
		res.Title = fallback.Title
	}
	return res
}

func normalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var tags []string
	for _, name := range names {
		name = graph.NormalizeTagName(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
		if len(tags) == maxTagSuggestions {
			break
		}
	}
	return tags
}

type splitOutput struct {
	Inklings []string `json:"inklings" jsonschema_description:"Atomic thoughts extracted from the memo, one string each"`
}

const splitPrompt = `Split the memo below into atomic thoughts
("inklings"): each one a single self-contained idea, in the author's
own words where possible. Return an empty list when the memo already is
a single thought.

Memo:
%s`

// SplitInklings extracts atomic thought drafts from a memo. Unlike
// Generate this returns the error: hatching is an explicit user action,
// not a side effect of saving.
func (g *Generator) SplitInklings(ctx context.Context, content string) ([]string, error) {
	var out splitOutput
	if err := g.completer.Complete(ctx, fmt.Sprintf(splitPrompt, content), &out); err != nil {
		return nil, fmt.Errorf("split inklings: %w", err)
	}

	var drafts []string
	for _, d := range out.Inklings {
		if d = strings.TrimSpace(d); d != "" {
			drafts = append(drafts, d)
		}
	}
	return drafts, nil
}
