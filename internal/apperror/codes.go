package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Rebalancing-specific error codes
const (
	// Market data errors
	CodeMarketNotFound        Code = "MARKET_NOT_FOUND"
	CodeMarketDataFetchFailed Code = "MARKET_DATA_FETCH_FAILED"
	CodeInvalidMarketData     Code = "INVALID_MARKET_DATA"

	// Optimization errors
	CodeNoMarketsFound      Code = "NO_MARKETS_FOUND"
	CodeNoPriceData         Code = "NO_PRICE_DATA"
	CodeInsufficientHistory Code = "INSUFFICIENT_HISTORY"
	CodeSimulationDataGap   Code = "SIMULATION_DATA_GAP"
	CodeAllocationFailed    Code = "ALLOCATION_FAILED"

	// Storage errors
	CodeResultNotFound Code = "RESULT_NOT_FOUND"
	CodeStorageError   Code = "STORAGE_ERROR"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
