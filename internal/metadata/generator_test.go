package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/inklings/inklings/internal/log"
)

// stubCompleter returns canned output or a fixed error.
type stubCompleter struct {
	fill func(out any)
	err  error

	lastPrompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, out any) error {
	s.lastPrompt = prompt
	if s.err != nil {
		return s.err
	}
	if s.fill != nil {
		s.fill(out)
	}
	return nil
}

func TestGenerate(t *testing.T) {
	stub := &stubCompleter{fill: func(out any) {
		*out.(*metadataOutput) = metadataOutput{
			Title:   " On Memory ",
			Summary: "Notes on how memory consolidates. ",
			Tags:    []string{"Memory", "neuroscience", "memory", ""},
		}
	}}
	gen := NewGenerator(stub, log.NewNop())

	res := gen.Generate(context.Background(), "some text", "", []string{"neuroscience"})
	if res.Title != "On Memory" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Summary != "Notes on how memory consolidates." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if len(res.Tags) != 2 || res.Tags[0] != "memory" || res.Tags[1] != "neuroscience" {
		t.Errorf("Tags = %v, want deduplicated lowercase pair", res.Tags)
	}
	if !strings.Contains(stub.lastPrompt, "neuroscience") {
		t.Error("prompt should offer the existing tags for reuse")
	}
}

func TestGenerateKeepsAuthorTitle(t *testing.T) {
	stub := &stubCompleter{fill: func(out any) {
		*out.(*metadataOutput) = metadataOutput{
			Title:   "Model Title",
			Summary: "A summary.",
			Tags:    []string{"memory"},
		}
	}}
	gen := NewGenerator(stub, log.NewNop())

	res := gen.Generate(context.Background(), "content", "My Own Title", nil)
	if res.Title != "My Own Title" {
		t.Errorf("Title = %q, want the author's title kept", res.Title)
	}
	if res.Summary != "A summary." || len(res.Tags) != 1 {
		t.Errorf("summary and tags should still come from the model, got %+v", res)
	}
}

func TestGenerateDegradesOnModelError(t *testing.T) {
	gen := NewGenerator(&stubCompleter{err: errors.New("model offline")}, log.NewNop())

	res := gen.Generate(context.Background(), "text", "My Title", nil)
	if res.Title != "My Title" || res.Summary != "" || res.Tags != nil {
		t.Errorf("degraded result = %+v, want given title only", res)
	}

	res = gen.Generate(context.Background(), "text", "  ", nil)
	if res.Title != FallbackTitle {
		t.Errorf("Title = %q, want %q when no title given", res.Title, FallbackTitle)
	}
}

func TestGenerateFallsBackOnEmptyModelTitle(t *testing.T) {
	stub := &stubCompleter{fill: func(out any) {
		*out.(*metadataOutput) = metadataOutput{Title: "  "}
	}}
	gen := NewGenerator(stub, log.NewNop())

	res := gen.Generate(context.Background(), "text", "", nil)
	if res.Title != FallbackTitle {
		t.Errorf("Title = %q, want %q", res.Title, FallbackTitle)
	}
}

func TestNormalizeTagsCap(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e", "f", "g"}
	if got := normalizeTags(in); len(got) != maxTagSuggestions {
		t.Errorf("got %d tags, want %d", len(got), maxTagSuggestions)
	}
}

func TestSplitInklings(t *testing.T) {
	stub := &stubCompleter{fill: func(out any) {
		*out.(*splitOutput) = splitOutput{Inklings: []string{"first idea", " ", "second idea"}}
	}}
	gen := NewGenerator(stub, log.NewNop())

	drafts, err := gen.SplitInklings(context.Background(), "a long memo")
	if err != nil {
		t.Fatalf("SplitInklings: %v", err)
	}
	if len(drafts) != 2 || drafts[0] != "first idea" || drafts[1] != "second idea" {
		t.Errorf("drafts = %v", drafts)
	}
}

func TestSplitInklingsPropagatesError(t *testing.T) {
	gen := NewGenerator(&stubCompleter{err: errors.New("model offline")}, log.NewNop())
	if _, err := gen.SplitInklings(context.Background(), "memo"); err == nil {
		t.Fatal("expected error from failed completion")
	}
}
