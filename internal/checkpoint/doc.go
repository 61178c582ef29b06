// Package checkpoint persists per-page processing status in SQLite and is the
// single source of truth for what still needs doing on resume.
//
// The Store manages database connections, schema initialization, atomic claim
// and complete transitions, stuck-record recovery, and snapshot queries. A
// record exists for every discovered page and is never deleted; failed pages
// re-enter pending only on an explicit retry request.
//
// Every mutation is durable before the call returns: the database runs in WAL
// mode with synchronous=FULL so an abrupt process kill immediately after a
// claim or complete never loses the transition. Schema changes bump the
// version in schema.go; users clear the work directory to adopt a new schema.
package checkpoint
