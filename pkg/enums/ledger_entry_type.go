package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeDeposit        LedgerEntryType = "deposit"
	LedgerEntryTypeWithdrawal     LedgerEntryType = "withdrawal"
	LedgerEntryTypeTradePayment   LedgerEntryType = "trade_payment"
	LedgerEntryTypeMarketplaceFee LedgerEntryType = "marketplace_fee"
	LedgerEntryTypeStorageFee     LedgerEntryType = "storage_fee"
	LedgerEntryTypeRentDeposit    LedgerEntryType = "rent_deposit"
	LedgerEntryTypeRentClaim      LedgerEntryType = "rent_claim"
	LedgerEntryTypeRentClawback   LedgerEntryType = "rent_clawback"
	LedgerEntryTypeAdjustment     LedgerEntryType = "adjustment"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeDeposit,
	LedgerEntryTypeWithdrawal,
	LedgerEntryTypeTradePayment,
	LedgerEntryTypeMarketplaceFee,
	LedgerEntryTypeStorageFee,
	LedgerEntryTypeRentDeposit,
	LedgerEntryTypeRentClaim,
	LedgerEntryTypeRentClawback,
	LedgerEntryTypeAdjustment,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
