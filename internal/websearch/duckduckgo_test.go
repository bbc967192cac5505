package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katakuxiko/luminarag/internal/model"
)

const resultsPage = `<html><body>
<div class="result">
  <h2><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">The <b>Go</b> Programming
     Language</a></h2>
</div>
<div class="result">
  <a class="result__snippet" href="https://ignored.example">snippet only</a>
  <h2><a class="result__a" href="https://pkg.go.dev/">Go Packages</a></h2>
</div>
<div class="result">
  <h2><a class="result__a" href="https://example.com/three">Third</a></h2>
</div>
</body></html>`

func TestSearch_ParsesResults(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	c := New(srv.URL+"/html/", 0, time.Second)
	results, err := c.Search(context.Background(), "golang docs", 2)
	require.NoError(t, err)

	assert.Equal(t, "golang docs", gotQuery)
	assert.Equal(t, "Mozilla/5.0", gotUA)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "The Go Programming Language", Link: "https://go.dev/doc/"}, results[0])
	assert.Equal(t, Result{Title: "Go Packages", Link: "https://pkg.go.dev/"}, results[1])
}

func TestSearch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0, time.Second).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSearch)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	}))
	defer srv.Close()

	results, err := New(srv.URL, 0, time.Second).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, NoResults, FormatResults(results))
}

func TestSearch_CancelledWhileThrottled(t *testing.T) {
	c := New("http://127.0.0.1:1", 0.001, time.Second)
	// drain the single burst token
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Search(ctx, "q", 5)
	assert.ErrorIs(t, err, model.ErrSearch)
}

func TestFormatResults(t *testing.T) {
	got := FormatResults([]Result{
		{Title: "One", Link: "https://a"},
		{Title: "Two", Link: "https://b"},
	})
	assert.Equal(t, "- One (https://a)\n- Two (https://b)", got)
}

func TestUnwrapLink(t *testing.T) {
	assert.Equal(t, "https://x.org/p", unwrapLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Fx.org%2Fp"))
	assert.Equal(t, "https://duckduckgo.com/y", unwrapLink("//duckduckgo.com/y"))
	assert.Equal(t, "https://plain", unwrapLink("https://plain"))
}
