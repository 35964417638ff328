// Package middleware decorates a ports.Cache, e.g. to encrypt or mask values before they
// reach a shared backend such as Redis.
package middleware

import "github.com/aretw0/rerun/pkg/ports"

// Middleware allows wrapping a Cache to add behavior.
type Middleware func(ports.Cache) ports.Cache

// Wrap applies middlewares so that the first one sees values first.
func Wrap(c ports.Cache, mws ...Middleware) ports.Cache {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
