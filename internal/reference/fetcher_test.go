package reference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inklings/inklings/internal/log"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>The Extended Mind</title>
	<meta name="author" content="A. Clark, D. Chalmers">
	<meta property="og:site_name" content="Analysis">
	<meta property="article:published_time" content="1998-01-02">
</head>
<body>
	<article>
		<h1>The Extended Mind</h1>
		<p>Where does the mind stop and the rest of the world begin? Some
		accept the demarcations of skin and skull, and say that what is
		outside the body is outside the mind. Others are impressed by
		arguments suggesting that the meaning of our words is not simply
		in our heads. We propose to pursue a third position: an active
		externalism, based on the active role of the environment in
		driving cognitive processes.</p>
		<p>Consider the use of pen and paper to perform long
		multiplication, or the use of a physical rearrangement of letter
		tiles to prompt word recall in Scrabble. In these cases the human
		organism is linked with an external entity in a two-way
		interaction, creating a coupled system that can be seen as a
		cognitive system in its own right.</p>
	</article>
</body>
</html>`

type fixedCompleter struct {
	out gapFillOutput
	err error

	called bool
}

func (c *fixedCompleter) Complete(_ context.Context, _ string, out any) error {
	c.called = true
	if c.err != nil {
		return c.err
	}
	*out.(*gapFillOutput) = c.out
	return nil
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExtractsMetadata(t *testing.T) {
	srv := serve(t, articleHTML)
	completer := &fixedCompleter{}
	f := NewFetcher(srv.Client(), completer, log.NewNop())

	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got.Title != "The Extended Mind" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Source.URL != srv.URL {
		t.Errorf("Source.URL = %q", got.Source.URL)
	}
	if got.Source.Authors != "A. Clark, D. Chalmers" {
		t.Errorf("Source.Authors = %q", got.Source.Authors)
	}
	if got.Source.Name != "Analysis" {
		t.Errorf("Source.Name = %q", got.Source.Name)
	}
	want := time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC)
	if got.Source.PublicationDate == nil || !got.Source.PublicationDate.Equal(want) {
		t.Errorf("Source.PublicationDate = %v, want %v", got.Source.PublicationDate, want)
	}
	if !strings.Contains(got.Content, "active externalism") {
		t.Errorf("Content missing article text: %q", got.Content)
	}
	if completer.called {
		t.Error("gap fill ran although all metadata was present")
	}
}

func TestFetchFillsGapsWithModel(t *testing.T) {
	bare := `<html><head><title>Bare Page</title></head><body><article>
	<p>A page without any meta tags at all, just enough body text for the
	readability extraction to find something worth keeping here.</p>
	</article></body></html>`
	srv := serve(t, bare)

	completer := &fixedCompleter{out: gapFillOutput{
		Authors:         "Anonymous",
		SourceName:      "Example Press",
		PublicationDate: "2020-06-15",
	}}
	f := NewFetcher(srv.Client(), completer, log.NewNop())

	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !completer.called {
		t.Fatal("gap fill should run when meta tags are missing")
	}
	if got.Title != "Bare Page" {
		t.Errorf("Title = %q, want the <title> to win over the model", got.Title)
	}
	if got.Source.Authors != "Anonymous" || got.Source.Name != "Example Press" {
		t.Errorf("Source = %+v", got.Source)
	}
	if got.Source.PublicationDate == nil || got.Source.PublicationDate.Year() != 2020 {
		t.Errorf("PublicationDate = %v", got.Source.PublicationDate)
	}
}

func TestFetchSurvivesGapFillFailure(t *testing.T) {
	bare := `<html><head><title>Still Works</title></head><body><article>
	<p>The fetch must succeed with partial metadata when the model is
	unavailable, because the URL and main text are already in hand.</p>
	</article></body></html>`
	srv := serve(t, bare)

	f := NewFetcher(srv.Client(), &fixedCompleter{err: errors.New("model offline")}, log.NewNop())
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Title != "Still Works" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Source.Authors != "" || got.Source.PublicationDate != nil {
		t.Errorf("Source should stay blank on gap fill failure: %+v", got.Source)
	}
}

func TestFetchRejectsBadInput(t *testing.T) {
	f := NewFetcher(nil, nil, log.NewNop())

	if _, err := f.Fetch(context.Background(), "not a url"); err == nil {
		t.Error("invalid URL accepted")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	f = NewFetcher(srv.Client(), nil, log.NewNop())
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("non-200 response accepted")
	}
}
