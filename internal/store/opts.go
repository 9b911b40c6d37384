package store

// Opts holds configuration options for storage backends.
type Opts struct {
	DSN string // connection string: a file path for SQLite, a URL for Postgres
}

// Option defines a configuration option for a storage backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the Postgres connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}
