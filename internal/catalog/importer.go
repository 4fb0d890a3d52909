package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"procheff/internal/pricing"
)

var (
	ErrNoPriceTable = errors.New("no price table found")
	ErrInvalidPrice = errors.New("invalid price")
)

type column int

const (
	colMaterialID column = iota
	colName
	colPrice
	colUnit
	colDate
)

// headerAliases maps normalized header cell text to the column it names.
var headerAliases = map[string]column{
	"material_id":  colMaterialID,
	"material id":  colMaterialID,
	"materialid":   colMaterialID,
	"malzeme kodu": colMaterialID,
	"kod":          colMaterialID,
	"code":         colMaterialID,
	"id":           colMaterialID,

	"malzeme": colName,
	"ürün":    colName,
	"ad":      colName,
	"name":    colName,

	"fiyat":       colPrice,
	"birim fiyat": colPrice,
	"price":       colPrice,
	"price_try":   colPrice,
	"price (try)": colPrice,

	"birim": colUnit,
	"unit":  colUnit,

	"tarih":      colDate,
	"güncelleme": colDate,
	"date":       colDate,
	"updated":    colDate,
	"updated_at": colDate,
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", time.RFC3339}

// Importer reads material prices from vendor HTML price lists.
type Importer struct {
	client *http.Client
	now    func() time.Time
	log    *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithHTTPClient sets the client used by FetchURL.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) { i.client = c }
}

// WithClock sets the time stamped on rows without a date.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// WithLogger sets the importer's logger.
func WithLogger(log *zap.Logger) Option {
	return func(i *Importer) { i.log = log }
}

// NewImporter creates an Importer.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// FetchURL downloads a price list page and parses it.
func (i *Importer) FetchURL(ctx context.Context, url string) ([]pricing.Price, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return i.ParseHTML(resp.Body)
}

// ParseHTML extracts prices from every table with a material and a price
// column. Rows that cannot be parsed are logged and skipped.
func (i *Importer) ParseHTML(r io.Reader) ([]pricing.Price, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		prices []pricing.Price
		found  bool
	)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		cols, header := tableColumns(table)
		_, hasPrice := cols[colPrice]
		_, hasID := cols[colMaterialID]
		if !hasPrice || (!hasID && !table.HasClass("price-list")) {
			return
		}
		found = true

		table.Find("tr").Each(func(n int, row *goquery.Selection) {
			if header != nil && row.IsSelection(header) {
				return
			}
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			p, err := i.parseRow(row, cells, cols)
			if err != nil {
				i.log.Warn("skipping price row", zap.Int("row", n), zap.Error(err))
				return
			}
			prices = append(prices, p)
		})
	})

	if !found {
		return nil, ErrNoPriceTable
	}
	if prices == nil {
		prices = []pricing.Price{}
	}
	return prices, nil
}

// tableColumns maps the header cells of table to column positions and
// returns the header row.
func tableColumns(table *goquery.Selection) (map[column]int, *goquery.Selection) {
	header := table.Find("thead tr").First()
	if header.Length() == 0 {
		header = table.Find("tr").First()
	}
	cols := make(map[column]int)
	header.Find("th, td").Each(func(idx int, cell *goquery.Selection) {
		key := strings.ToLower(strings.TrimSpace(cell.Text()))
		if c, ok := headerAliases[key]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = idx
			}
		}
	})
	if header.Length() == 0 {
		return cols, nil
	}
	return cols, header
}

func (i *Importer) parseRow(row, cells *goquery.Selection, cols map[column]int) (pricing.Price, error) {
	cell := func(c column) string {
		idx, ok := cols[c]
		if !ok || idx >= cells.Length() {
			return ""
		}
		return strings.TrimSpace(cells.Eq(idx).Text())
	}

	id := cell(colMaterialID)
	if id == "" {
		id = strings.TrimSpace(row.AttrOr("data-material-id", ""))
	}
	if id == "" {
		return pricing.Price{}, errors.New("row has no material id")
	}

	amount, err := ParseAmount(cell(colPrice))
	if err != nil {
		return pricing.Price{}, fmt.Errorf("material %s: %w", id, err)
	}

	unit := pricing.CanonicalUnit(cell(colUnit))
	if unit != "" {
		if _, err := pricing.DimensionOf(unit); err != nil {
			i.log.Debug("price quoted in unknown unit", zap.String("material_id", id), zap.String("unit", unit))
		}
	}

	updated := i.now()
	if raw := cell(colDate); raw != "" {
		updated, err = parseDate(raw)
		if err != nil {
			return pricing.Price{}, fmt.Errorf("material %s: %w", id, err)
		}
	}

	return pricing.Price{
		MaterialID: id,
		PriceTRY:   amount.InexactFloat64(),
		Unit:       unit,
		UpdatedAt:  updated,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// MergePrices overlays imported prices on existing ones by material id. The
// result keeps the order of existing, followed by new materials in import
// order; a later record for the same material wins.
func MergePrices(existing, imported []pricing.Price) []pricing.Price {
	out := make([]pricing.Price, 0, len(existing)+len(imported))
	index := make(map[string]int, len(existing)+len(imported))
	for _, p := range append(append([]pricing.Price(nil), existing...), imported...) {
		if idx, ok := index[p.MaterialID]; ok {
			out[idx] = p
			continue
		}
		index[p.MaterialID] = len(out)
		out = append(out, p)
	}
	return out
}

// ParseAmount parses a lira amount in Turkish or English notation, such as
// "₺1.234,56", "45,50 TL" or "45.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("₺", "", "TRY", "", "TL", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}

	lastDot, lastComma := strings.LastIndex(clean, "."), strings.LastIndex(clean, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Whichever separator comes last is the decimal one.
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
		}
		clean = strings.Replace(clean, ",", ".", 1)
	case lastDot >= 0:
		// "1.234" and "1.234.567" group thousands.
		if strings.Count(clean, ".") > 1 || len(clean)-lastDot-1 == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", ErrInvalidPrice, s)
	}
	return d, nil
}
