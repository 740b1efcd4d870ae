// Package models defines the core domain records of the Evenly ledger.
//
// # Records
//
//   - Person: a participant, including the viewing user
//   - Group: a named set of persons sharing expenses
//   - Expense: one shared expense with payer shares and owed splits
//   - PayerShare: one contributor's paid portion of an expense
//   - Split: one participant's owed portion of an expense
//   - Settlement: a payment extinguishing debt between two persons
//   - Reminder: a non-financial nudge sent to a debtor
//   - Message: a free-text chat entry in a person or group thread
//
// # Design principles
//
// 1. Records are immutable once committed; the engine only ever reads them.
// 2. Relationships are ID strings resolved through a Snapshot, never live
// pointers, so a dangling reference is an explicit error instead of a nil
// dereference.
// 3. Every record carries a creation sequence number (Seq) assigned by the
// store, used as the deterministic tie-break when two feed items share a
// timestamp.
// 4. Amounts are money.Money; no floating point anywhere in the graph.
package models
