/*
Package observability turns engine lifecycle hooks into Prometheus metrics and structured logs.

Both helpers return a domain.LifecycleHooks value; use Chain to install several at once:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Chain(metrics.Hooks(), observability.LogHooks(logger))
*/
package observability
