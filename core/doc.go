// Package core contains the session domain contracts and the coordination logic
// that keeps a client authenticated against a server issuing short-lived
// credentials: the session store, the request executor, the single-flight
// refresh coordinator, and the route guard. Transport and storage adapters
// depend on this package; core must not depend on them.
package core
