package ariss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	logx "arissbot/pkg/logx"
)

// DefaultURL is the ariss.net "last stations heard" page. absolute=1 makes
// the page render full timestamps instead of relative ones.
const DefaultURL = "https://www.ariss.net/?absolute=1"

// ErrFetch covers network failure, a non-2xx response, and an unparsable
// page. The remediation is the same for all three: skip this tick and let
// the next scheduled tick retry.
var ErrFetch = errors.New("ariss: fetch failed")

// timestampColumn is the fixed column index of the heard-at cell in a
// result row. The callsign cell is column 0.
const timestampColumn = 4

type ClientConfig struct {
	URL     string
	Timeout time.Duration // HTTP client timeout; bounds a hung fetch
}

// Client scrapes the last-heard table. It performs no retries; retry policy
// belongs to the caller.
type Client struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// LastHeard fetches and parses the most recent event from the page.
func (c *Client) LastHeard(ctx context.Context) (Heard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Heard{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Heard{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Heard{}, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	h, err := parseLastHeard(resp.Body)
	if err != nil {
		return Heard{}, err
	}

	c.log.Debug("last heard fetched",
		logx.String("callsign", h.Callsign),
		logx.String("heard_at", h.Timestamp),
		logx.Duration("took", time.Since(start)))
	return h, nil
}

// parseLastHeard interprets the first data row (after the header row) of the
// page's table as the most recent event.
func parseLastHeard(r io.Reader) (Heard, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Heard{}, fmt.Errorf("%w: parse html: %v", ErrFetch, err)
	}

	rows := findAll(doc, "tr")
	if len(rows) < 2 {
		return Heard{}, fmt.Errorf("%w: expected at least 2 table rows, got %d", ErrFetch, len(rows))
	}

	cells := findAll(rows[1], "td")
	if len(cells) <= timestampColumn {
		return Heard{}, fmt.Errorf("%w: expected at least %d columns, got %d", ErrFetch, timestampColumn+1, len(cells))
	}

	h := Heard{
		Callsign:  strings.TrimSpace(textContent(cells[0])),
		Timestamp: strings.TrimSpace(textContent(cells[timestampColumn])),
		Link:      firstHref(cells[0]),
	}
	if h.Callsign == "" {
		return Heard{}, fmt.Errorf("%w: empty callsign cell", ErrFetch)
	}
	if _, err := h.Time(); err != nil {
		return Heard{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return h, nil
}

// findAll returns all elements with the given tag, in document order.
// Nested matches are not descended into (a <tr> never contains another <tr>
// in practice, but guard anyway).
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// firstHref returns the href of the first anchor under n, or "".
func firstHref(n *html.Node) string {
	for _, a := range findAll(n, "a") {
		for _, attr := range a.Attr {
			if attr.Key == "href" {
				return attr.Val
			}
		}
	}
	return ""
}
