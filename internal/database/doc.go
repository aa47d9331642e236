// Package database provides the PostgreSQL connection pool holding accounts,
// stocks, offers and trades.
package database
