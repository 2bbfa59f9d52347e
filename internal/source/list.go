package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"harvester/internal/crawl"
	"harvester/internal/logging"
)

const idLength = 24

// FetchPage implements crawl.ListSource.
func (c *Client) FetchPage(ctx context.Context, page int) ([]crawl.ItemRef, error) {
	target := c.pageURL(page)
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, &crawl.FetchError{Page: page, URL: target, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, &crawl.FetchError{Page: page, URL: target, Err: fmt.Errorf("parse listing: %w", err)}
	}

	var refs []crawl.ItemRef
	doc.Find(c.cfg.RowSelector).Each(func(_ int, row *goquery.Selection) {
		ref, ok := c.parseRow(row)
		if !ok {
			return
		}
		ref.Page = page
		ref.Index = len(refs)
		refs = append(refs, ref)
	})

	c.logger.Debug("listing parsed",
		logging.Int(logging.FieldPage, page),
		logging.Int("rows", len(refs)),
	)
	return refs, nil
}

func (c *Client) parseRow(row *goquery.Selection) (crawl.ItemRef, bool) {
	var cells []string
	row.Find(c.cfg.CellSelector).Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cleanText(cell.Text()))
	})
	link := row.Find(c.cfg.LinkSelector).First()
	href, _ := link.Attr("href")
	detailURL := c.resolve(href)

	// Header rows have no data cells; "no results" rows have a single
	// spanning cell and no link.
	if len(cells) == 0 || (len(cells) < 2 && detailURL == "") {
		return crawl.ItemRef{}, false
	}

	rawText := strings.Join(cells, " ")
	fields := make(map[string]string, len(cells))
	for i, value := range cells {
		fields[c.columnName(i)] = value
	}

	ref := crawl.ItemRef{
		ID:        guessID(detailURL, rawText),
		DetailURL: detailURL,
		RawText:   rawText,
		Fields:    fields,
		Org:       c.column(fields, c.cfg.OrgColumn),
		PostedAt:  c.column(fields, c.cfg.PostedColumn),
		Deadline:  c.column(fields, c.cfg.DeadlineColumn),
	}
	ref.Title = c.column(fields, c.cfg.TitleColumn)
	if ref.Title == "" {
		ref.Title = cleanText(link.Text())
	}
	if ref.Title == "" && len(cells) >= 3 {
		ref.Title = cells[2]
	}
	if ref.Title == "" {
		ref.Title = firstLine(rawText)
	}
	return ref, true
}

func (c *Client) columnName(i int) string {
	if i < len(c.cfg.Columns) && c.cfg.Columns[i] != "" {
		return c.cfg.Columns[i]
	}
	return fmt.Sprintf("col_%d", i+1)
}

func (c *Client) column(fields map[string]string, name string) string {
	if name == "" {
		return ""
	}
	return fields[name]
}

// guessID derives a stable id from the detail URL, falling back to the row
// text for rows without a link.
func guessID(detailURL, rowText string) string {
	basis := detailURL
	if basis == "" {
		basis = rowText
	}
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:])[:idLength]
}

func cleanText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func firstLine(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = value[:idx]
	}
	const maxTitle = 200
	if runes := []rune(value); len(runes) > maxTitle {
		value = string(runes[:maxTitle])
	}
	return value
}
