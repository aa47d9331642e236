// Package engine matches pending offers against incoming ticks. A tick
// fills every pending offer on its symbol whose limit price equals the
// traded price exactly, regardless of side; each fill updates the offer,
// records a trade and adjusts the account balance in one transaction.
package engine
