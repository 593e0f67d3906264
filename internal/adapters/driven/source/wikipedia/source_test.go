package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

func TestSource_Accepts(t *testing.T) {
	s := New(Config{})

	assert.True(t, s.Accepts("https://it.wikipedia.org/wiki/Giochi_olimpici"))
	assert.True(t, s.Accepts("http://en.wikipedia.org/wiki/Olympic_Games"))
	assert.True(t, s.Accepts("wikipedia:Olympic Games"))
	assert.False(t, s.Accepts("https://example.com/wiki/Olympic_Games"))
	assert.False(t, s.Accepts("docs/olympics.md"))
	assert.Equal(t, "wikipedia", s.Name())
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		fallback domain.Language
		title    string
		lang     domain.Language
		wantErr  error
	}{
		{
			name:     "italian url",
			ref:      "https://it.wikipedia.org/wiki/Giochi_della_I_Olimpiade",
			fallback: domain.LanguageEnglish,
			title:    "Giochi della I Olimpiade",
			lang:     domain.LanguageItalian,
		},
		{
			name:     "escaped title",
			ref:      "https://en.wikipedia.org/wiki/Athletics_at_the_1896_Summer_Olympics_%E2%80%93_Men%27s_marathon",
			fallback: domain.LanguageItalian,
			title:    "Athletics at the 1896 Summer Olympics – Men's marathon",
			lang:     domain.LanguageEnglish,
		},
		{
			name:     "unsupported host language falls back",
			ref:      "https://de.wikipedia.org/wiki/Olympische_Spiele",
			fallback: domain.LanguageItalian,
			title:    "Olympische Spiele",
			lang:     domain.LanguageItalian,
		},
		{
			name:     "prefixed title",
			ref:      "wikipedia:Olimpiadi",
			fallback: domain.LanguageItalian,
			title:    "Olimpiadi",
			lang:     domain.LanguageItalian,
		},
		{
			name:     "empty title",
			ref:      "wikipedia: ",
			fallback: domain.LanguageItalian,
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "bad fallback language",
			ref:      "wikipedia:Olimpiadi",
			fallback: "fr",
			wantErr:  domain.ErrUnsupportedLanguage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, lang, err := ParseRef(tt.ref, tt.fallback)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.lang, lang)
		})
	}
}

func TestSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/it/w/api.php", r.URL.Path)
		assert.Equal(t, "WikiRag", r.Header.Get("User-Agent"))
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "1", q.Get("explaintext"))

		switch q.Get("titles") {
		case "Giochi della I Olimpiade":
			_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{"pages":[{
				"pageid": 1234,
				"title": "Giochi della I Olimpiade",
				"extract": "I Giochi della I Olimpiade si svolsero ad Atene nel 1896.",
				"fullurl": "https://it.wikipedia.org/wiki/Giochi_della_I_Olimpiade"
			}]}}`))
		default:
			_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{"pages":[{"ns":0,"title":"Nope","missing":true}]}}`))
		}
	}))
	defer srv.Close()

	s := New(Config{Endpoint: srv.URL + "/{lang}/w/api.php", RatePerSecond: 100})
	ctx := context.Background()

	docs, err := s.Fetch(ctx, "https://it.wikipedia.org/wiki/Giochi_della_I_Olimpiade", domain.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "https://it.wikipedia.org/wiki/Giochi_della_I_Olimpiade", doc.URI)
	assert.Equal(t, "text/plain", doc.MIMEType)
	assert.Equal(t, domain.LanguageItalian, doc.Language)
	assert.Equal(t, "Giochi della I Olimpiade", doc.Metadata["title"])
	assert.Contains(t, string(doc.Content), "Atene nel 1896")

	_, err = s.Fetch(ctx, "wikipedia:Nope", domain.LanguageItalian)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSource_FetchErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"code":"badvalue","info":"Unrecognized value"}}`))
		}))
		defer srv.Close()

		_, err := New(Config{Endpoint: srv.URL, RatePerSecond: 100}).Fetch(context.Background(), "wikipedia:X", domain.LanguageItalian)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "badvalue")
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := New(Config{Endpoint: srv.URL, RatePerSecond: 100}).Fetch(context.Background(), "wikipedia:X", domain.LanguageItalian)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := New(Config{Endpoint: srv.URL, RatePerSecond: 100}).Fetch(context.Background(), "wikipedia:X", domain.LanguageItalian)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wikipedia error (status 502)")
	})
}
