package scrape_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shunxiangg/YTvid-storage/internal/scrape"
)

func Test_ScrapeOpenGraph(t *testing.T) {
	tests := []struct {
		summary       string
		html          string
		expectedTitle string
		expectedImage string
	}{
		{
			"og tags present",
			`<html><head>
				<meta property="og:title" content="A Great Video" />
				<meta property="og:image" content="https://example.com/thumb.jpg" />
			</head></html>`,
			"A Great Video",
			"https://example.com/thumb.jpg",
		},
		{
			"falls back to title element",
			`<html><head><title>  Plain Title  </title></head></html>`,
			"Plain Title",
			"",
		},
		{
			"nothing usable",
			`<html><body><p>no metadata here</p></body></html>`,
			"",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(tt.html))
			}))
			defer srv.Close()

			meta, err := scrape.New().ScrapeOpenGraph(context.Background(), srv.URL)
			assert.Nil(t, err)
			assert.Equal(t, tt.expectedTitle, meta.Title)
			assert.Equal(t, tt.expectedImage, meta.Image)
		})
	}
}

func Test_ScrapeOpenGraph_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := scrape.New().ScrapeOpenGraph(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status 429")
}
