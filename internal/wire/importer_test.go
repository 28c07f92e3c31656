package wire_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/newsroom-rundown/internal/logging"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository/memstore"
	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/wire"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Agency Wire</title>
    <link>https://wire.example.com/</link>
    <item>
      <title>Bridge closed after storm</title>
      <guid>wire-1001</guid>
      <description><![CDATA[<p>The bridge is closed.</p><script>track()</script>]]></description>
    </item>
    <item>
      <title>Council votes on budget</title>
      <link>https://wire.example.com/1002</link>
      <description>Vote expected tonight.</description>
    </item>
    <item>
      <title>   </title>
      <guid>wire-1003</guid>
    </item>
  </channel>
</rss>`

func newImporter() (*wire.Importer, *service.StoryService) {
	stories := service.NewStoryService(memstore.New(), logging.Discard())
	return wire.NewImporter(stories, logging.Discard()), stories
}

func TestImportReaderCreatesDraftStories(t *testing.T) {
	ctx := context.Background()
	im, stories := newImporter()

	res, err := im.ImportReader(ctx, 4, "agency", strings.NewReader(sampleRSS))
	require.NoError(t, err)
	assert.Equal(t, "Agency Wire", res.Feed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.StoryIDs, 2)

	st, err := stories.GetStory(ctx, res.StoryIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Bridge closed after storm", st.Title)
	assert.Equal(t, "<p>The bridge is closed.</p>", st.Body)
	assert.Equal(t, model.StoryDraft, st.Status)
	assert.Equal(t, "agency", st.Source)
	require.NotNil(t, st.SourceRef)
	assert.Equal(t, "wire-1001", *st.SourceRef)

	linked, err := stories.GetStory(ctx, res.StoryIDs[1])
	require.NoError(t, err)
	require.NotNil(t, linked.SourceRef)
	assert.Equal(t, "https://wire.example.com/1002", *linked.SourceRef)

	again, err := im.ImportReader(ctx, 4, "agency", strings.NewReader(sampleRSS))
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 2, again.Duplicate)
}

func TestImportReaderRejectsGarbage(t *testing.T) {
	im, _ := newImporter()
	_, err := im.ImportReader(context.Background(), 1, "agency", strings.NewReader("not a feed"))
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = im.ImportReader(context.Background(), 1, "", strings.NewReader(sampleRSS))
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestImportFetchesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	im, _ := newImporter()
	res, err := im.Import(context.Background(), 4, srv.URL+"/feed.xml")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, "127.0.0.1", res.Source)

	_, err = im.Import(context.Background(), 4, srv.URL+"/missing.xml")
	require.ErrorIs(t, err, wire.ErrFetch)
	assert.Contains(t, err.Error(), "HTTP 404")

	_, err = im.Import(context.Background(), 4, "ftp://wire.example.com/feed")
	assert.ErrorIs(t, err, service.ErrValidation)
}
