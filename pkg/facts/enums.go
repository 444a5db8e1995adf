package facts

// Currency is an ISO 4217 currency code.
type Currency string

const (
	CurrencyCNY Currency = "CNY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyHKD Currency = "HKD"
	CurrencySGD Currency = "SGD"
	CurrencyGBP Currency = "GBP"
)

// Currencies lists the supported currencies.
var Currencies = []Currency{CurrencyCNY, CurrencyUSD, CurrencyEUR, CurrencyHKD, CurrencySGD, CurrencyGBP}

// WalletStatus is the operational state of a wallet.
type WalletStatus string

const (
	WalletActive WalletStatus = "Active"
	WalletLocked WalletStatus = "Locked"
)

// WalletStatuses lists the wallet states.
var WalletStatuses = []WalletStatus{WalletActive, WalletLocked}

// RiskLevel is the assessed compliance risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskLevels lists the risk levels from lowest to highest.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// KYCStatus is the state of identity verification.
type KYCStatus string

const (
	KYCVerified KYCStatus = "Verified"
	KYCPending  KYCStatus = "Pending"
	KYCRejected KYCStatus = "Rejected"
)

// KYCStatuses lists the verification states.
var KYCStatuses = []KYCStatus{KYCVerified, KYCPending, KYCRejected}

// IsValidEnum reports whether value is one of values.
func IsValidEnum[T ~string](value T, values []T) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
