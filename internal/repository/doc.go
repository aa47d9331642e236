// Package repository is the persistence boundary for the matching core.
//
// The core depends only on the Store interface; Postgres is the production
// implementation, Memory backs tests and local runs.
//
// Tables (Postgres):
//   - stocks   (id, code, name)
//   - accounts (id, cash_balance)
//   - offers   (id, request_id unique, stock_code, account_id, side, price, quantity, status)
//   - trades   (id, offer_id unique)
package repository
