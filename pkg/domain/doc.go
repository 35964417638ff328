/*
Package domain contains the core types of the rerun engine.

It defines containers, widgets and their identities, the durable per-session state,
the incremental update operations sent to clients and the error taxonomy. This package
is kept free of I/O and persistence concerns.

# Key Entities

  - Container: an addressable placement target, compared structurally across runs.
  - Widget: anything a script can place into a container; optional interfaces add state,
    callbacks, sub-containers or URL-derived values.
  - SessionState: widget values, pending form values, callbacks, URL context and media of one client.
  - Update: an add, replace or truncate operation for one container position.
*/
package domain
