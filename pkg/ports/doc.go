/*
Package ports defines the driven ports (interfaces) of the rerun engine.

These interfaces decouple the reconciliation core from transports, caches and
reload mechanisms, so the same engine can stream updates over SSE, WebSockets or
an in-memory recorder.

# Key Interfaces

  - Transport: receives incremental updates and run status notifications.
  - Cache: the process-wide store shared by every session.
  - DistributedLocker: coordinates the one-run-per-session gate across replicas.
  - Reloader: reports when the user script or its dependencies changed.
  - Run: the handle a script receives for one execution.
*/
package ports
