package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Or returns dbc.Tx when set, else fallback bound to dbc.Ctx.
func (dbc Context) Or(fallback *gorm.DB) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = fallback
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return tx.WithContext(ctx)
}
