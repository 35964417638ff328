package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/rerun/pkg/domain"
)

// LogHooks logs run boundaries at info level and individual updates at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunBegin: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "run_begin", "session_id", e.SessionID)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_end",
				"session_id", e.SessionID,
				"outcome", e.Outcome,
				"widgets", e.Widgets,
				"duration", e.Duration,
			)
		},
		OnSend: func(ctx context.Context, e *domain.SendEvent) {
			logger.DebugContext(ctx, "send",
				"session_id", e.SessionID,
				"kind", e.Kind,
				"container", e.Container,
				"key", e.WidgetKey,
			)
		},
		OnConflict: func(ctx context.Context, e *domain.SendEvent) {
			logger.WarnContext(ctx, "duplicate_identity",
				"session_id", e.SessionID,
				"container", e.Container,
				"key", e.WidgetKey,
			)
		},
	}
}

// Chain combines several hook sets; each callback fires in argument order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var runBegin, runEnd []func(context.Context, *domain.RunEvent)
	var send, skip, conflict []func(context.Context, *domain.SendEvent)
	for _, h := range hooks {
		runBegin = appendHook(runBegin, h.OnRunBegin)
		runEnd = appendHook(runEnd, h.OnRunEnd)
		send = appendHook(send, h.OnSend)
		skip = appendHook(skip, h.OnSkip)
		conflict = appendHook(conflict, h.OnConflict)
	}
	return domain.LifecycleHooks{
		OnRunBegin: fanOut(runBegin),
		OnRunEnd:   fanOut(runEnd),
		OnSend:     fanOut(send),
		OnSkip:     fanOut(skip),
		OnConflict: fanOut(conflict),
	}
}

func appendHook[E any](list []func(context.Context, E), fn func(context.Context, E)) []func(context.Context, E) {
	if fn == nil {
		return list
	}
	return append(list, fn)
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
