// Package feed implements the upstream market-data feed client.
//
// The feed client:
//   - Maintains one persistent websocket connection to the upstream feed
//   - Reconciles desired subscriptions against pending offers on a timer
//   - Classifies inbound frames (JSON control vs. raw pipe data)
//   - Decrypts AES-CBC data frames using per-subscription iv/key pairs
//   - Hands extracted (symbol, price) ticks to the registered handler
package feed
