// Package catalog builds game catalog entries from Steam store pages.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"games_planner/internal/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNotSteamPage   = errors.New("not a steam store page")
	ErrMissingFields  = errors.New("page is missing required fields")
	whitespacePattern = regexp.MustCompile(`\s+`)
	genrePattern      = regexp.MustCompile(`Genre:\s*(.+?)\s*(Developer:|Publisher:|Franchise:|Release Date:|$)`)
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type Fetcher struct {
	client *http.Client
	log    *slog.Logger
}

func NewFetcher(log *slog.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Fetch downloads a store page and parses it into a game.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*models.Game, error) {
	const op = "catalog.Fetch"

	u, err := url.Parse(pageURL)
	if err != nil || !strings.HasSuffix(u.Hostname(), "steampowered.com") {
		return nil, fmt.Errorf("%s: %s: %w", op, pageURL, ErrNotSteamPage)
	}

	q := u.Query()
	q.Set("l", "english")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.AddCookie(&http.Cookie{Name: "birthtime", Value: "473385601"})
	req.AddCookie(&http.Cookie{Name: "wants_mature_content", Value: "1"})

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status code: %d", op, resp.StatusCode)
	}

	game, err := ParsePage(resp.Body, pageURL)
	if err != nil {
		if f.log != nil {
			f.log.Error("failed to parse store page",
				slog.String("operation", op),
				slog.String("url", pageURL),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	return game, nil
}

// ParsePage extracts title, genre, description and header image from store page HTML.
func ParsePage(r io.Reader, pageURL string) (*models.Game, error) {
	const op = "catalog.ParsePage"

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	game := &models.Game{
		Title:       clean(doc.Find("#appHubAppName, div.apphub_AppName").First().Text()),
		Genre:       parseGenre(doc),
		Description: clean(doc.Find("div.game_description_snippet").First().Text()),
		URL:         pageURL,
	}

	if img, ok := doc.Find("img.game_header_image_full").First().Attr("src"); ok {
		game.Image = img
	}

	if game.Title == "" || game.Genre == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	return game, nil
}

func parseGenre(doc *goquery.Document) string {
	details := doc.Find("div.details_block, #genresAndManufacturer").First()

	var genres []string
	details.Find(`a[href*="/genre/"]`).Each(func(_ int, s *goquery.Selection) {
		if g := clean(s.Text()); g != "" {
			genres = append(genres, g)
		}
	})
	if len(genres) > 0 {
		return strings.Join(genres, ", ")
	}

	m := genrePattern.FindStringSubmatch(clean(details.Text()))
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}

	return ""
}

func clean(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
