package importer

import (
	"context"
	"strings"
	"testing"

	"cutin/internal/domain"
	merchantsvc "cutin/internal/service/merchant"
)

type stubMenu struct {
	items   []domain.MenuItem
	patches map[string]merchantsvc.MenuItemPatch
}

func (s *stubMenu) Menu(context.Context, string) ([]domain.MenuItem, error) {
	return s.items, nil
}

func (s *stubMenu) AddMenuItem(_ context.Context, merchantID string, in merchantsvc.MenuItemInput) (*domain.MenuItem, error) {
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	item := domain.MenuItem{
		ID:          "item-" + in.Name,
		MerchantID:  merchantID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		Available:   available,
	}
	s.items = append(s.items, item)
	return &item, nil
}

func (s *stubMenu) UpdateMenuItem(_ context.Context, _ string, itemID string, patch merchantsvc.MenuItemPatch) (*domain.MenuItem, error) {
	if s.patches == nil {
		s.patches = map[string]merchantsvc.MenuItemPatch{}
	}
	s.patches[itemID] = patch
	return &domain.MenuItem{ID: itemID}, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := "name,price,description,imageUrl,available\n" +
		"Kota,45.00,Quarter loaf,https://example.com/kota.jpg,true\n" +
		",,,,\n" +
		"Chips,R25.50,,,false\n" +
		"\"Pie, steak\",30,,,\n"

	menu := &stubMenu{}
	stats, err := NewCSVImporter(strings.NewReader(csvData), menu, "m1").Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if stats.Added != 3 || stats.Updated != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	kota := menu.items[0]
	if kota.Name != "Kota" || kota.Price.String() != "45" || kota.ImageURL != "https://example.com/kota.jpg" || !kota.Available {
		t.Fatalf("unexpected first item %+v", kota)
	}
	if menu.items[1].Available || menu.items[1].Price.String() != "25.5" {
		t.Fatalf("unexpected chips %+v", menu.items[1])
	}
	if menu.items[2].Name != "Pie, steak" || !menu.items[2].Available {
		t.Fatalf("unexpected pie %+v", menu.items[2])
	}
}

func TestCSVImporter_UpdatesExistingByName(t *testing.T) {
	menu := &stubMenu{items: []domain.MenuItem{{ID: "existing", MerchantID: "m1", Name: "Kota"}}}
	csvData := "name,price\nkota,50\nNew,10\n"

	stats, err := NewCSVImporter(strings.NewReader(csvData), menu, "m1").Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if stats.Added != 1 || stats.Updated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	patch, ok := menu.patches["existing"]
	if !ok || patch.Price == nil || patch.Price.String() != "50" {
		t.Fatalf("expected price patch on existing item, got %+v", patch)
	}
	if patch.Available != nil || patch.Description != nil {
		t.Fatalf("empty columns must not be patched: %+v", patch)
	}
}

func TestCSVImporter_Errors(t *testing.T) {
	cases := map[string]string{
		"missing price column": "name,description\nKota,x\n",
		"bad price":            "name,price\nKota,cheap\n",
		"missing name":         "name,price\n,10\n",
		"bad available":        "name,price,available\nKota,10,maybe\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewCSVImporter(strings.NewReader(data), &stubMenu{}, "m1").Run(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCSVImporter_ReportsLineNumbers(t *testing.T) {
	data := "name,price\nKota,10\nChips,oops\n"
	_, err := NewCSVImporter(strings.NewReader(data), &stubMenu{}, "m1").Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error on line 3, got %v", err)
	}
}
