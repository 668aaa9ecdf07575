// Package demo creates the inventory tables and fills them with repeatable
// fake data so the bot can be tried without a production database.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jmoiron/sqlx"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

// Options controls the size and randomness of the generated data.
type Options struct {
	Seed       int64
	Users      int
	Partners   int
	Warehouses int
	Products   int
	// Reset drops the inventory tables before creating them.
	Reset  bool
	Logger *slog.Logger
}

// DefaultOptions returns a small data set that exercises every table.
func DefaultOptions() Options {
	return Options{
		Seed:       42,
		Users:      5,
		Partners:   12,
		Warehouses: 3,
		Products:   40,
	}
}

// TableCount is the number of rows written to one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// Report summarizes a seeding run.
type Report struct {
	Seed   int64        `json:"seed"`
	Tables []TableCount `json:"tables"`
}

// Rows returns the count for table, or 0.
func (r *Report) Rows(table string) int {
	for _, tc := range r.Tables {
		if tc.Table == table {
			return tc.Rows
		}
	}
	return 0
}

var (
	userRoles  = []string{"admin", "manager", "operator"}
	categories = 8
	trackings  = []string{"none", "none", "lot", "serial"}
	epoch      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Seed creates the descriptor's tables on conn and fills them. The same
// Options always produce the same rows.
func Seed(ctx context.Context, conn connector.Connector, d *schema.Descriptor, opts Options) (*Report, error) {
	def := DefaultOptions()
	if opts.Seed == 0 {
		opts.Seed = def.Seed
	}
	if opts.Users <= 0 {
		opts.Users = def.Users
	}
	if opts.Partners <= 0 {
		opts.Partners = def.Partners
	}
	if opts.Warehouses <= 0 {
		opts.Warehouses = def.Warehouses
	}
	if opts.Products <= 0 {
		opts.Products = def.Products
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ddl, err := d.CreateStatements(conn.DriverName())
	if err != nil {
		return nil, err
	}

	db := conn.DB()
	if opts.Reset {
		for _, s := range d.DropStatements() {
			if _, err := db.ExecContext(ctx, s); err != nil {
				return nil, fmt.Errorf("drop tables: %w", err)
			}
		}
	}
	for _, s := range ddl {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	data := generate(opts)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	report := &Report{Seed: opts.Seed}
	for _, t := range data {
		if err := insertRows(ctx, tx, conn, t); err != nil {
			return nil, err
		}
		report.Tables = append(report.Tables, TableCount{Table: t.name, Rows: len(t.rows)})
		logger.Debug("seeded table", "table", t.name, "rows", len(t.rows))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed transaction: %w", err)
	}

	logger.Info("demo data seeded", "seed", opts.Seed, "driver", conn.DriverName())
	return report, nil
}

type tableRows struct {
	name    string
	columns []string
	rows    [][]any
}

func (t *tableRows) add(values ...any) { t.rows = append(t.rows, values) }

func insertRows(ctx context.Context, tx *sqlx.Tx, conn connector.Connector, t *tableRows) error {
	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = conn.ParameterPlaceholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "))

	prepared, err := tx.PreparexContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", t.name, err)
	}
	defer prepared.Close()

	for _, row := range t.rows {
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", t.name, err)
		}
	}
	return nil
}

type quantKey struct {
	product  int
	location int
	lot      int
}

// generate builds every table in dependency order. Quants and valuation
// layers are derived from the completed moves so the data is consistent.
func generate(opts Options) []*tableRows {
	f := gofakeit.New(opts.Seed)

	users := &tableRows{name: "users", columns: []string{"id", "name", "email", "role", "created_at"}}
	for i := 1; i <= opts.Users; i++ {
		users.add(i, f.Name(), f.Email(), f.RandomString(userRoles), f.DateRange(epoch.AddDate(-1, 0, 0), epoch))
	}

	partners := &tableRows{name: "partners", columns: []string{"id", "name", "type", "email", "phone", "address"}}
	for i := 1; i <= opts.Partners; i++ {
		kind := "supplier"
		if i%2 == 0 {
			kind = "customer"
		}
		partners.add(i, f.Company(), kind, f.Email(), f.Phone(), f.Street()+", "+f.City())
	}

	warehouses := &tableRows{name: "warehouses", columns: []string{"id", "name", "short_code"}}
	locations := &tableRows{name: "locations", columns: []string{"id", "name", "warehouse_id", "usage_type", "parent_location_id"}}
	vendorLoc, customerLoc := 1, 2
	locations.add(vendorLoc, "Partners/Vendors", nil, "supplier", nil)
	locations.add(customerLoc, "Partners/Customers", nil, "customer", nil)

	var internal []int
	nextLoc := 3
	for w := 1; w <= opts.Warehouses; w++ {
		code := fmt.Sprintf("WH%d", w)
		warehouses.add(w, f.City()+" Warehouse", code)

		stock := nextLoc
		locations.add(stock, code+"/Stock", w, "internal", nil)
		nextLoc++
		for shelf := 1; shelf <= 2; shelf++ {
			locations.add(nextLoc, fmt.Sprintf("%s/Stock/Shelf %d", code, shelf), w, "internal", stock)
			internal = append(internal, nextLoc)
			nextLoc++
		}
	}

	products := &tableRows{name: "products", columns: []string{
		"id", "name", "sku", "category_id", "uom_id", "standard_price", "tracking", "min_reorder_level",
	}}
	lots := &tableRows{name: "stock_lots", columns: []string{"id", "name", "product_id", "expiry_date"}}
	prices := make(map[int]float64, opts.Products)
	productLots := make(map[int][]int)
	nextLot := 1
	for p := 1; p <= opts.Products; p++ {
		tracking := f.RandomString(trackings)
		price := round(f.Float64Range(0.5, 250), 2)
		prices[p] = price
		products.add(p, f.ProductName(), fmt.Sprintf("SKU-%05d", p), f.Number(1, categories), 1, price, tracking, f.Number(5, 50))

		if tracking == "lot" {
			for i := 0; i < 2; i++ {
				lots.add(nextLot, fmt.Sprintf("LOT-%04d", nextLot), p, f.DateRange(epoch.AddDate(1, 0, 0), epoch.AddDate(3, 0, 0)))
				productLots[p] = append(productLots[p], nextLot)
				nextLot++
			}
		}
	}

	moves := &tableRows{name: "stock_moves", columns: []string{
		"id", "transfer_id", "date", "product_id", "qty", "uom_id", "location_id", "dest_location_id", "lot_id", "state",
	}}
	layers := &tableRows{name: "stock_valuation_layer", columns: []string{
		"id", "product_id", "stock_move_id", "quantity", "remaining_qty", "unit_cost", "value",
	}}
	onHand := make(map[quantKey]float64)
	var order []quantKey
	nextMove, nextLayer, transfer := 1, 1, 1

	for p := 1; p <= opts.Products; p++ {
		dest := internal[f.Number(0, len(internal)-1)]
		var lot any
		key := quantKey{product: p, location: dest}
		if ids := productLots[p]; len(ids) > 0 {
			lotID := ids[f.Number(0, len(ids)-1)]
			lot, key.lot = lotID, lotID
		}

		received := float64(f.Number(20, 500))
		when := f.DateRange(epoch, epoch.AddDate(0, 6, 0))
		moves.add(nextMove, transfer, when, p, received, 1, vendorLoc, dest, lot, "done")
		receipt := nextMove
		nextMove++
		transfer++

		shipped := 0.0
		if f.Number(0, 2) > 0 {
			shipped = float64(f.Number(1, int(received/2)))
			state := "done"
			if f.Number(0, 4) == 0 {
				state = "confirmed"
			}
			moves.add(nextMove, transfer, when.AddDate(0, 0, f.Number(1, 60)), p, shipped, 1, dest, customerLoc, lot, state)
			if state == "done" {
				layers.add(nextLayer+1, p, nextMove, -shipped, 0.0, prices[p], round(-shipped*prices[p], 2))
			} else {
				shipped = 0
			}
			nextMove++
			transfer++
		}

		layers.add(nextLayer, p, receipt, received, received-shipped, prices[p], round(received*prices[p], 2))
		nextLayer += 2

		if _, ok := onHand[key]; !ok {
			order = append(order, key)
		}
		onHand[key] += received - shipped
	}

	quants := &tableRows{name: "stock_quants", columns: []string{
		"id", "product_id", "location_id", "lot_id", "quantity", "reserved_quantity",
	}}
	for i, k := range order {
		qty := onHand[k]
		var lot any
		if k.lot != 0 {
			lot = k.lot
		}
		reserved := 0.0
		if qty >= 4 {
			reserved = float64(f.Number(0, int(qty/4)))
		}
		quants.add(i+1, k.product, k.location, lot, qty, reserved)
	}

	return []*tableRows{users, partners, warehouses, locations, products, lots, moves, quants, layers}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
