package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"harvester/internal/crawl"
)

// ErrNoDetailURL is returned for items whose listing row had no usable link.
var ErrNoDetailURL = errors.New("item has no detail url")

// FetchDetail implements crawl.DetailFetcher.
func (c *Client) FetchDetail(ctx context.Context, ref crawl.ItemRef) crawl.DetailResult {
	if ref.DetailURL == "" {
		return crawl.Failed(&crawl.DetailError{ID: ref.ID, Err: ErrNoDetailURL})
	}
	body, err := c.get(ctx, ref.DetailURL)
	if err != nil {
		return crawl.Failed(&crawl.DetailError{
			ID:       ref.ID,
			URL:      ref.DetailURL,
			Status:   statusOf(err),
			Snapshot: body,
			Err:      err,
		})
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return crawl.Failed(&crawl.DetailError{ID: ref.ID, URL: ref.DetailURL, Snapshot: body, Err: fmt.Errorf("parse detail: %w", err)})
	}
	if sel := c.cfg.DetailReadySelector; sel != "" && doc.Find(sel).Length() == 0 {
		return crawl.Failed(&crawl.DetailError{
			ID:       ref.ID,
			URL:      ref.DetailURL,
			Snapshot: body,
			Err:      fmt.Errorf("ready selector %q not found", sel),
		})
	}

	sum := sha256.Sum256(body)
	return crawl.Succeeded(crawl.DetailRecord{
		ID:          ref.ID,
		Title:       ref.Title,
		DetailURL:   ref.DetailURL,
		ListFields:  ref.Fields,
		Fields:      extractFields(doc),
		Tables:      extractTables(doc),
		ContentHash: hex.EncodeToString(sum[:]),
	})
}

// extractFields collects th/td and dt/dd pairs in document order.
func extractFields(doc *goquery.Document) []crawl.Field {
	fields := []crawl.Field{}
	doc.Find("th").Each(func(_ int, th *goquery.Selection) {
		td := th.NextFiltered("td")
		if td.Length() == 0 {
			return
		}
		if key := cleanText(th.Text()); key != "" {
			fields = append(fields, crawl.Field{Key: key, Value: cleanText(td.Text())})
		}
	})
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		if key := cleanText(dt.Text()); key != "" {
			fields = append(fields, crawl.Field{Key: key, Value: cleanText(dd.Text())})
		}
	})
	return fields
}

// extractTables returns grid tables: a header row of th cells followed by rows
// of td cells. Key/value tables, where th and td share a row, are skipped.
func extractTables(doc *goquery.Document) []crawl.Table {
	var tables []crawl.Table
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var (
			out   crawl.Table
			mixed bool
		)
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			ths := tr.ChildrenFiltered("th")
			tds := tr.ChildrenFiltered("td")
			switch {
			case ths.Length() > 0 && tds.Length() > 0:
				mixed = true
			case ths.Length() > 0 && out.Headers == nil && len(out.Rows) == 0:
				ths.Each(func(_ int, th *goquery.Selection) {
					out.Headers = append(out.Headers, cleanText(th.Text()))
				})
			case tds.Length() > 0:
				row := make([]string, 0, tds.Length())
				tds.Each(func(_ int, td *goquery.Selection) {
					row = append(row, cleanText(td.Text()))
				})
				out.Rows = append(out.Rows, row)
			}
		})
		if mixed || len(out.Headers) == 0 || len(out.Rows) == 0 {
			return
		}
		tables = append(tables, out)
	})
	return tables
}
