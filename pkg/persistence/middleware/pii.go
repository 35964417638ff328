package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/rerun/pkg/ports"
	"github.com/mohae/deepcopy"
)

// Mask replaces the values of sensitive keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.Cache
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, before storage, the entries of map values
// whose keys match one of the patterns. The caller's value is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.Cache) ports.Cache {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Put(ctx context.Context, key string, value any) error {
	if mv, ok := value.(map[string]any); ok {
		cloned := deepcopy.Copy(mv).(map[string]any)
		maskMap(cloned, m.patterns)
		value = cloned
	}
	return m.next.Put(ctx, key, value)
}

func (m *piiMiddleware) Get(ctx context.Context, key string) (any, bool, error) {
	return m.next.Get(ctx, key)
}

func (m *piiMiddleware) Remove(ctx context.Context, key string) error {
	return m.next.Remove(ctx, key)
}

func (m *piiMiddleware) Clear(ctx context.Context) error {
	return m.next.Clear(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
