package models

// All lists every persisted model in dependency order. Used by sqlite AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Product{},
		&ProductVariant{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
