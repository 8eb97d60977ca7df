package server

import (
	"github.com/eternalApril/moonstone/internal/resp"
	"github.com/eternalApril/moonstone/internal/store"
)

// context carries one command invocation: its arguments and the store handle
type context struct {
	args  []resp.Value
	store *store.Store
}

// arg returns the i-th argument as a plain string
func (c *context) arg(i int) string {
	return string(c.args[i].String)
}

type command interface {
	execute(ctx *context) resp.Value
}

type commandFunc func(ctx *context) resp.Value

func (c commandFunc) execute(ctx *context) resp.Value {
	return c(ctx)
}
