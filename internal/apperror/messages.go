package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Market data errors
	CodeMarketNotFound:        "Market not found",
	CodeMarketDataFetchFailed: "Failed to fetch market data",
	CodeInvalidMarketData:     "Invalid market data",

	// Optimization errors
	CodeNoMarketsFound:      "No markets found",
	CodeNoPriceData:         "No market carries collateral and loan prices",
	CodeInsufficientHistory: "Insufficient rate history",
	CodeSimulationDataGap:   "No aligned timeseries data for simulation",
	CodeAllocationFailed:    "Debt allocation failed",

	// Storage errors
	CodeResultNotFound: "Result not found",
	CodeStorageError:   "Result storage error",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
