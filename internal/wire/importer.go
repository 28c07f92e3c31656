// Package wire imports agency feeds (RSS, Atom or JSON Feed) into DRAFT
// stories.  An import is a one-shot pass over the feed; entries already
// imported under the same source and id are skipped.
package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/newsroom-rundown/internal/metrics"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

// FetchTimeout bounds one feed download.
const FetchTimeout = 30 * time.Second

// ErrFetch marks a feed that could not be downloaded or parsed.
var ErrFetch = errors.New("feed fetch failed")

// StoryImporter stores a single feed entry.  *service.StoryService
// implements it.
type StoryImporter interface {
	ImportStory(ctx context.Context, stationID uint64, source, ref, title, body string) (*model.Story, bool, error)
}

// Result summarises an import.
type Result struct {
	Source    string   `json:"source"`
	Feed      string   `json:"feed"`
	Created   int      `json:"created"`
	Duplicate int      `json:"duplicate"`
	Skipped   int      `json:"skipped"`
	StoryIDs  []uint64 `json:"story_ids"`
}

// Importer turns feed entries into stories.
type Importer struct {
	stories StoryImporter
	client  *http.Client
	log     logrus.FieldLogger
}

func NewImporter(stories StoryImporter, log logrus.FieldLogger) *Importer {
	return &Importer{stories: stories, client: newHTTPClient(), log: log}
}

// Import downloads feedURL and imports its entries for stationID.  The
// feed's host name is used as the story source.
func (im *Importer) Import(ctx context.Context, stationID uint64, feedURL string) (Result, error) {
	u, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Result{}, &service.ValidationError{Field: "url", Message: "must be an absolute http(s) URL"}
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = im.client
	feed, err := fp.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return Result{}, fmt.Errorf("%w: %s answered HTTP %d", ErrFetch, u.Host, httpErr.StatusCode)
		}
		return Result{}, fmt.Errorf("%w: %s: %v", ErrFetch, u.Host, err)
	}
	return im.importFeed(ctx, stationID, u.Hostname(), feed)
}

// ImportReader imports a feed document read from r under source.
func (im *Importer) ImportReader(ctx context.Context, stationID uint64, source string, r io.Reader) (Result, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Result{}, &service.ValidationError{Field: "source", Message: "must not be empty"}
	}
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return Result{}, &service.ValidationError{Field: "feed", Message: err.Error()}
	}
	return im.importFeed(ctx, stationID, source, feed)
}

func (im *Importer) importFeed(ctx context.Context, stationID uint64, source string, feed *gofeed.Feed) (Result, error) {
	res := Result{Source: source, Feed: feed.Title, StoryIDs: []uint64{}}
	for _, item := range feed.Items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ref := entryRef(item)
		if ref == "" || strings.TrimSpace(item.Title) == "" {
			res.Skipped++
			metrics.WireEntriesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		st, created, err := im.stories.ImportStory(ctx, stationID, source, ref, item.Title, entryBody(item))
		switch {
		case errors.Is(err, service.ErrValidation):
			res.Skipped++
			metrics.WireEntriesTotal.WithLabelValues("skipped").Inc()
			im.log.WithError(err).WithField("ref", ref).Debug("wire entry skipped")
			continue
		case err != nil:
			return res, err
		case created:
			res.Created++
			res.StoryIDs = append(res.StoryIDs, st.ID)
			metrics.WireEntriesTotal.WithLabelValues("created").Inc()
		default:
			res.Duplicate++
			metrics.WireEntriesTotal.WithLabelValues("duplicate").Inc()
		}
	}

	im.log.WithFields(logrus.Fields{
		"station_id": stationID,
		"source":     source,
		"created":    res.Created,
		"duplicate":  res.Duplicate,
		"skipped":    res.Skipped,
	}).Info("wire feed imported")
	return res, nil
}

// entryRef prefers the GUID and falls back to the link.
func entryRef(item *gofeed.Item) string {
	if ref := strings.TrimSpace(item.GUID); ref != "" {
		return ref
	}
	return strings.TrimSpace(item.Link)
}

func entryBody(item *gofeed.Item) string {
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	return item.Description
}

func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: FetchTimeout}
}
