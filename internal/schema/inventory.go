package schema

// InventoryVersion identifies the revision of the inventory descriptor. Bump
// it whenever a table or column changes so history entries can be traced.
const InventoryVersion = "inventory-2024.1"

func pk() Column { return Column{Name: "id", Type: "INT", PrimaryKey: true} }

func col(name, typ string) Column { return Column{Name: name, Type: typ, Nullable: true} }

func ref(name, target string) Column {
	return Column{Name: name, Type: "INT", Nullable: true, References: target}
}

func enum(name string, values ...string) Column {
	return Column{Name: name, Type: "ENUM", Nullable: true, Enum: values}
}

// Inventory returns the descriptor of the warehouse inventory database.
func Inventory() *Descriptor {
	d, err := New(InventoryVersion,
		Table{Name: "users", Columns: []Column{
			pk(),
			col("name", "VARCHAR(255)"),
			col("email", "VARCHAR(255)"),
			col("role", "VARCHAR(50)"),
			col("created_at", "DATETIME"),
		}},
		Table{Name: "partners", Columns: []Column{
			pk(),
			col("name", "VARCHAR(255)"),
			enum("type", "customer", "supplier"),
			col("email", "VARCHAR(255)"),
			col("phone", "VARCHAR(50)"),
			col("address", "TEXT"),
		}},
		Table{Name: "warehouses", Columns: []Column{
			pk(),
			col("name", "VARCHAR(255)"),
			col("short_code", "VARCHAR(10)"),
		}},
		Table{Name: "locations", Columns: []Column{
			pk(),
			col("name", "VARCHAR(255)"),
			ref("warehouse_id", "warehouses(id)"),
			enum("usage_type", "internal", "customer", "supplier", "transit", "production"),
			ref("parent_location_id", "locations(id)"),
		}},
		Table{Name: "products", Columns: []Column{
			pk(),
			col("name", "VARCHAR(255)"),
			col("sku", "VARCHAR(100)"),
			col("category_id", "INT"),
			col("uom_id", "INT"),
			col("standard_price", "DECIMAL(15,2)"),
			enum("tracking", "none", "lot", "serial"),
			col("min_reorder_level", "INT"),
		}},
		Table{Name: "stock_lots", Columns: []Column{
			pk(),
			col("name", "VARCHAR(255)"),
			ref("product_id", "products(id)"),
			col("expiry_date", "DATE"),
		}},
		Table{Name: "stock_moves", Columns: []Column{
			pk(),
			col("transfer_id", "INT"),
			col("date", "DATETIME"),
			ref("product_id", "products(id)"),
			col("qty", "DECIMAL(15,3)"),
			col("uom_id", "INT"),
			ref("location_id", "locations(id)"),
			ref("dest_location_id", "locations(id)"),
			ref("lot_id", "stock_lots(id)"),
			enum("state", "draft", "confirmed", "done", "cancelled"),
		}},
		Table{Name: "stock_quants", Columns: []Column{
			pk(),
			ref("product_id", "products(id)"),
			ref("location_id", "locations(id)"),
			ref("lot_id", "stock_lots(id)"),
			col("quantity", "DECIMAL(15,3)"),
			col("reserved_quantity", "DECIMAL(15,3)"),
		}},
		Table{Name: "stock_valuation_layer", Columns: []Column{
			pk(),
			ref("product_id", "products(id)"),
			ref("stock_move_id", "stock_moves(id)"),
			col("quantity", "DECIMAL(15,3)"),
			col("remaining_qty", "DECIMAL(15,3)"),
			col("unit_cost", "DECIMAL(15,4)"),
			col("value", "DECIMAL(15,2)"),
		}},
	)
	if err != nil {
		panic("schema: invalid inventory descriptor: " + err.Error())
	}
	return d
}
