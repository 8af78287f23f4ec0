// Package postgres provides PostgreSQL implementations of the store
// interfaces using pgx's database/sql driver.
package postgres
