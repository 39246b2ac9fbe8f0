package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cutin/internal/domain"
	merchantsvc "cutin/internal/service/merchant"
	"github.com/shopspring/decimal"
)

// MenuWriter is the slice of the merchant service the importer needs.
type MenuWriter interface {
	Menu(ctx context.Context, merchantID string) ([]domain.MenuItem, error)
	AddMenuItem(ctx context.Context, merchantID string, in merchantsvc.MenuItemInput) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, merchantID, itemID string, patch merchantsvc.MenuItemPatch) (*domain.MenuItem, error)
}

// CSVImporter loads a merchant's menu from CSV with the columns
// name,price,description,imageUrl,available. Only name and price are required.
// Rows whose name already exists on the menu update that item.
type CSVImporter struct {
	reader     *csv.Reader
	menus      MenuWriter
	merchantID string
}

func NewCSVImporter(r io.Reader, menus MenuWriter, merchantID string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, menus: menus, merchantID: merchantID}
}

// Stats counts what a run changed.
type Stats struct {
	Added   int
	Updated int
}

type menuRow struct {
	line        int
	name        string
	price       decimal.Decimal
	description string
	imageURL    string
	available   *bool
}

func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range []string{"name", "price"} {
		if _, ok := index[col]; !ok {
			return stats, fmt.Errorf("missing %q column", col)
		}
	}

	existing, err := i.menus.Menu(ctx, i.merchantID)
	if err != nil {
		return stats, fmt.Errorf("load menu: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, it := range existing {
		byName[strings.ToLower(it.Name)] = it.ID
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		row, err := parseRow(record, index, line)
		if err != nil {
			return stats, err
		}
		if row == nil {
			continue
		}

		key := strings.ToLower(row.name)
		if id, ok := byName[key]; ok {
			if err := i.update(ctx, id, row); err != nil {
				return stats, err
			}
			stats.Updated++
			continue
		}
		created, err := i.menus.AddMenuItem(ctx, i.merchantID, merchantsvc.MenuItemInput{
			Name:        row.name,
			Description: row.description,
			Price:       row.price,
			ImageURL:    row.imageURL,
			Available:   row.available,
		})
		if err != nil {
			return stats, fmt.Errorf("line %d: add %q: %w", row.line, row.name, err)
		}
		byName[key] = created.ID
		stats.Added++
	}
	return stats, nil
}

func (i *CSVImporter) update(ctx context.Context, id string, row *menuRow) error {
	patch := merchantsvc.MenuItemPatch{Price: &row.price, Available: row.available}
	if row.description != "" {
		patch.Description = &row.description
	}
	if row.imageURL != "" {
		patch.ImageURL = &row.imageURL
	}
	if _, err := i.menus.UpdateMenuItem(ctx, i.merchantID, id, patch); err != nil {
		return fmt.Errorf("line %d: update %q: %w", row.line, row.name, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

// parseRow returns nil for blank lines.
func parseRow(record []string, index map[string]int, line int) (*menuRow, error) {
	name := pick(record, index, "name")
	priceStr := pick(record, index, "price")
	if name == "" && priceStr == "" {
		return nil, nil
	}
	if name == "" {
		return nil, fmt.Errorf("line %d: name required", line)
	}
	price, err := decimal.NewFromString(strings.TrimPrefix(priceStr, "R"))
	if err != nil {
		return nil, fmt.Errorf("line %d: invalid price %q", line, priceStr)
	}

	row := &menuRow{
		line:        line,
		name:        name,
		price:       price,
		description: pick(record, index, "description"),
		imageURL:    pick(record, index, "imageUrl"),
	}
	if v := pick(record, index, "available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid available %q", line, v)
		}
		row.available = &b
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
