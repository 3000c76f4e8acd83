// Package database opens the SQL store shared by the catalog and the
// confirmation queue.
//
// Two drivers are supported: a local SQLite file (modernc.org/sqlite) for
// standalone deployments, and MySQL (go-sql-driver/mysql) when the catalog
// lives in a database owned by another application. Table names carry the
// configured prefix so shelfmark can share that database.
//
// The queue schema is owned here and versioned through schema_version; Open
// creates it on first use and refuses databases written by another version.
// The catalog schema belongs to the catalog owner and is only created on
// explicit request (EnsureCatalogSchema).
package database
