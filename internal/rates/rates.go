// File path: internal/rates/rates.go
package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/harborlend/loanbridge/internal/common"
)

const (
	ratesURL      = "https://www.mortgagenewsdaily.com/mortgage-rates"
	fannieMaeURL  = "https://selling-guide.fanniemae.com/"
	freddieMacURL = "https://guide.freddiemac.com/app/guide/browse"
	hudFHAURL     = "https://www.hud.gov/hud-partners/single-family-fha-resource-center"

	userAgent = "Mozilla/5.0"

	// summaryMinLen filters out nav crumbs and cookie banners when
	// extracting guideline paragraphs.
	summaryMinLen   = 80
	summaryMaxParas = 2
)

// Client fetches current mortgage rates and loan-program guideline summaries
// from their public sources. Satisfies chat.RateSource.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 10 * time.Second}}
}

// MortgageRates returns the current rate table keyed by product name.
func (c *Client) MortgageRates(ctx context.Context) (map[string]string, error) {
	doc, err := c.fetch(ctx, ratesURL)
	if err != nil {
		return nil, err
	}
	rates := parseRateTable(doc)
	if len(rates) == 0 {
		return nil, fmt.Errorf("no rate rows found at %s", ratesURL)
	}
	return rates, nil
}

// ProgramSummaries returns short guideline excerpts for the major loan
// programs. Sources that fail are reported in-line rather than failing the
// whole map, so the assistant can still answer with what it has.
func (c *Client) ProgramSummaries(ctx context.Context) map[string]string {
	sources := map[string]string{
		"Fannie Mae":  fannieMaeURL,
		"Freddie Mac": freddieMacURL,
		"HUD FHA":     hudFHAURL,
	}
	summaries := make(map[string]string, len(sources))
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc, err := c.fetch(ctx, sources[name])
		if err != nil {
			common.Logger().Warn("program summary fetch failed", "program", name, "error", err)
			summaries[name] = fmt.Sprintf("Failed to fetch: %v", err)
			continue
		}
		summaries[name] = parseSummary(doc)
	}
	return summaries
}

func (c *Client) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// parseRateTable extracts product/rate pairs from every table.mtg-rates,
// skipping each table's header row.
func parseRateTable(doc *goquery.Document) map[string]string {
	rates := make(map[string]string)
	doc.Find("table.mtg-rates").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cols := row.Find("td")
			if cols.Length() < 2 {
				return
			}
			product := strings.TrimSpace(cols.Eq(0).Text())
			rate := strings.TrimSpace(cols.Eq(1).Text())
			if product != "" && rate != "" {
				rates[product] = rate
			}
		})
	})
	return rates
}

// parseSummary joins the first substantial paragraphs of a guideline page.
func parseSummary(doc *goquery.Document) string {
	var blocks []string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len(text) > summaryMinLen {
			blocks = append(blocks, text)
		}
		return len(blocks) < summaryMaxParas
	})
	if len(blocks) == 0 {
		return "No content extracted."
	}
	return strings.Join(blocks, "\n\n")
}
