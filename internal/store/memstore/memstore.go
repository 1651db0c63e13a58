// Package memstore is a mutex-guarded in-memory implementation of the store
// contracts. It mirrors the Mongo repositories' conditional updates so the
// services behave the same way against either backend.
package memstore

import (
	"sort"

	"storefront/internal/store"
)

func New() store.Repositories {
	return store.Repositories{
		Users:         NewUsers(),
		Products:      NewProducts(),
		Categories:    NewCategories(),
		Carts:         NewCarts(),
		Orders:        NewOrders(),
		RefreshTokens: NewRefreshTokens(),
		Events:        NewEventLog(),
	}
}

func paginate[T any](items []T, page, limit int64) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

func sortNewestFirst[T any](items []T, createdAt func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]) > createdAt(items[j])
	})
}

var (
	_ store.UserRepository         = (*Users)(nil)
	_ store.ProductRepository      = (*Products)(nil)
	_ store.CategoryRepository     = (*Categories)(nil)
	_ store.CartRepository         = (*Carts)(nil)
	_ store.OrderRepository        = (*Orders)(nil)
	_ store.RefreshTokenRepository = (*RefreshTokens)(nil)
	_ store.EventLog               = (*EventLog)(nil)
)
