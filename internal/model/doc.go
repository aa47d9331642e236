// Package model defines shared data types used across the market-feed core.
//
// Conventions:
//   - Prices and cash balances: int64 in currency minor units
//   - Symbols: upstream issue codes (e.g. "005930")
//   - IDs: int64 database identity, uuid.UUID for intake dedupe keys
package model
