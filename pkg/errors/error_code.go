package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation and configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidRiskFraction  ErrorCode = 103
	ErrCodeInvalidMaxUnits      ErrorCode = 104
	ErrCodeInvalidMultiplier    ErrorCode = 105
	ErrCodeInvalidCapital       ErrorCode = 106
	ErrCodeInvalidMode          ErrorCode = 107
	ErrCodeMissingParameter     ErrorCode = 108

	// Data errors (200-299)
	ErrCodeInsufficientData ErrorCode = 200
	ErrCodeDuplicateBar     ErrorCode = 201
	ErrCodeOutOfOrderBar    ErrorCode = 202
	ErrCodeInvalidBar       ErrorCode = 203
	ErrCodeNonPositiveATR   ErrorCode = 204
	ErrCodeDataNotFound     ErrorCode = 205

	// Indicator errors (300-399)
	ErrCodeIndicatorNotReady    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301

	// Strategy errors (400-499)
	ErrCodeCannotSize         ErrorCode = 400
	ErrCodeSessionHalted      ErrorCode = 401
	ErrCodeParamsUpdateDenied ErrorCode = 402
	ErrCodeUnknownInstrument  ErrorCode = 403
	ErrCodeFillFailed         ErrorCode = 404

	// Invariant violations (500-599)
	ErrCodeInvariantViolation ErrorCode = 500

	// Backtest errors (600-699)
	ErrCodeBacktestFailed    ErrorCode = 600
	ErrCodeBacktestCancelled ErrorCode = 601

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeInvalidInterval       ErrorCode = 702
	ErrCodeStreamFailed          ErrorCode = 703

	// Storage errors (800-899)
	ErrCodeStorageOpenFailed  ErrorCode = 800
	ErrCodeStorageQueryFailed ErrorCode = 801
	ErrCodeStorageWriteFailed ErrorCode = 802
)

// IsDataCode reports whether the code belongs to the recoverable data error range.
func (c ErrorCode) IsDataCode() bool {
	return (c >= 200 && c < 300) || c == ErrCodeIndicatorNotReady || c == ErrCodeCannotSize
}

// IsConfigCode reports whether the code belongs to the configuration error range.
func (c ErrorCode) IsConfigCode() bool {
	return c >= 100 && c < 200
}

// IsInvariantCode reports whether the code belongs to the invariant violation range.
func (c ErrorCode) IsInvariantCode() bool {
	return c >= 500 && c < 600
}
