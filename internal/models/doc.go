// Package models defines the core domain records for finwise.
//
// # Records
//
// Every record owned by a user embeds Base, which carries the record ID,
// the owning user ID and the audit timestamps:
//   - Account: a financial container (checking, savings, credit, ...) with a balance
//   - Transaction: an income or expense booked against an Account
//   - Budget: a spending cap for a category over a period
//   - Goal: a savings target tracked through contributions
//   - Bill: a one-time or recurring payment obligation
//   - Investment: a holding valued at purchase and current price
//   - Notification: a message pushed to the user in real time
//   - AIConversation: a chat history with the assistant
//
// User is the only record without an owner.
//
// # Encoding
//
// Records are stored as documents. The bson and json field names are
// identical (camelCase) so that both storage backends and the REST API agree
// on field names used in filters.
//
// # Derived state
//
// Values such as budget usage, goal progress and bill status are never
// stored. They are computed on read by the calculator package.
package models
