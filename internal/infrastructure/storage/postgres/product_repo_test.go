package postgres

import (
	"testing"

	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/product"
)

func TestSumStockQuery_GroupsBySKU(t *testing.T) {
	repo := NewProductRepo(nil)

	sku := "WID-42"
	locationID := id.New()

	sql, args, err := repo.sumStockQuery(locationID, product.StockGroup{SKU: &sku}).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT COALESCE(SUM(stock_level), 0) FROM products WHERE location_id = $1 AND sku = $2"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 2 {
		t.Fatalf("Args count mismatch\nwant: 2\ngot:  %d", len(args))
	}
	if args[1] != sku {
		t.Errorf("sku arg mismatch\nwant: %v\ngot:  %v", sku, args[1])
	}
}

func TestSumStockQuery_GroupsByKanbanAndDescription(t *testing.T) {
	repo := NewProductRepo(nil)

	locationID := id.New()
	kanbanID := id.New()

	sql, args, err := repo.sumStockQuery(locationID, product.StockGroup{
		KanbanID:    &kanbanID,
		Description: "M8 bolts",
	}).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	// Eq renders its keys sorted, so description comes before kanban_id.
	want := "SELECT COALESCE(SUM(stock_level), 0) FROM products WHERE location_id = $1 AND description = $2 AND kanban_id = $3"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 3 {
		t.Fatalf("Args count mismatch\nwant: 3\ngot:  %d", len(args))
	}
	if args[1] != "M8 bolts" {
		t.Errorf("description arg mismatch\ngot: %v", args[1])
	}
}

func TestSumStockQuery_BlankSKUFallsBackToGroup(t *testing.T) {
	repo := NewProductRepo(nil)

	blank := ""
	kanbanID := id.New()

	sql, _, err := repo.sumStockQuery(id.New(), product.StockGroup{
		SKU:         &blank,
		KanbanID:    &kanbanID,
		Description: "unlabeled stock",
	}).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT COALESCE(SUM(stock_level), 0) FROM products WHERE location_id = $1 AND description = $2 AND kanban_id = $3"
	if sql != want {
		t.Errorf("blank sku must group by kanban and description\ngot: %s", sql)
	}
}
