// Package facts defines the domain objects inserted into rule sessions.
//
// A FactContext carries up to three facts: the Member being evaluated, the
// Member's Wallet and the Member's Compliance record. Absent facts are nil
// and are never inserted. Each fact exposes its fields to the rule engine
// by name through the Fact interface, using the same names the JSON
// encoding uses (balance, currency, status, riskLevel, kycStatus).
package facts
