package domain

import "time"

// LedgerEntryKind distinguishes debits from credits in the credit ledger.
type LedgerEntryKind string

const (
	LedgerEntryCharge LedgerEntryKind = "charge"
	LedgerEntryRefund LedgerEntryKind = "refund"
	LedgerEntryGrant  LedgerEntryKind = "grant"
)

// LedgerReferenceJob is the reference type used for generation job charges.
const LedgerReferenceJob = "generation_job"

// LedgerEntry is one balance movement. Charges and refunds are unique per
// (kind, reference type, reference id).
type LedgerEntry struct {
	ID            string
	UserID        string
	Kind          LedgerEntryKind
	Amount        int64
	ReferenceType string
	ReferenceID   string
	Reason        string
	CreatedAt     time.Time
}
