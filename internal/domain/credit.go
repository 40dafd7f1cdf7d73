package domain

import "time"

// ─── Credit Audit Types ─────────────────────────────────────────────────────
// Every point movement on a ledger is mirrored as an audit entry. The entry
// is informational: the LedgerState is authoritative, the audit trail only
// records why balances moved.

// EntryType represents the accounting side of an audit entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// TransactionType represents the business reason for a credit operation.
type TransactionType string

const (
	TxEarn  TransactionType = "EARN"  // earnPoints
	TxSpend TransactionType = "SPEND" // shop purchases
	TxBonus TransactionType = "BONUS" // achievement rewards
)

// AuditEntry is a single row in the credit audit trail.
type AuditEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      TransactionType `json:"type"`
	EntryType EntryType       `json:"entry_type"`
	Amount    int64           `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	Balance   int64           `json:"balance"` // totalPoints after the movement
}
