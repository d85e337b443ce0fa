package parser

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
)

var (
	errMissingTitle = errors.New("missing title")
	errMissingLink  = errors.New("missing link")
)

// extractListings applies a selector table to a search results page. Items
// that cannot be read are skipped; the rest are returned in page order.
func extractListings(doc *goquery.Document, sel config.SelectorConfig, base *url.URL, source string, fetchedAt time.Time) ([]domain.RawListing, int) {
	var (
		listings []domain.RawListing
		skipped  int
	)

	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		listing, err := parseItem(item, sel, base)
		if err != nil {
			skipped++
			return
		}
		listing.SourceID = source
		listing.FetchedAt = fetchedAt
		listings = append(listings, listing)
	})

	return listings, skipped
}

func parseItem(item *goquery.Selection, sel config.SelectorConfig, base *url.URL) (domain.RawListing, error) {
	title := readTitle(item, sel)
	if title == "" {
		return domain.RawListing{}, errMissingTitle
	}

	href, _ := item.Find(sel.Link).First().Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return domain.RawListing{}, errMissingLink
	}

	return domain.RawListing{
		Title:      title,
		PriceText:  firstText(item, sel.Price),
		URL:        resolveLink(base, href),
		ImageURL:   resolveLink(base, readImage(item, sel.Image)),
		Seller:     firstText(item, sel.Seller),
		RatingText: firstText(item, sel.Rating),
	}, nil
}

func readTitle(item *goquery.Selection, sel config.SelectorConfig) string {
	node := item.Find(sel.Title).First()
	if sel.TitleAttr != "" {
		if v, ok := node.Attr(sel.TitleAttr); ok {
			return strings.TrimSpace(v)
		}
	}
	return strings.Join(strings.Fields(node.Text()), " ")
}

func readImage(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	img := item.Find(selector).First()
	for _, attr := range []string{"src", "data-src", "data-old-hires"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(item.Find(selector).First().Text()), " ")
}

func resolveLink(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// BuildSearchURL substitutes the escaped query into a {query} template.
func BuildSearchURL(template, query string) string {
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(strings.TrimSpace(query)))
}
