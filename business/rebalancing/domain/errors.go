package domain

import (
	"fmt"

	"github.com/fd1az/debt-rebalancer/internal/apperror"
)

// Sentinels for errors.Is matching by code.
var (
	ErrConfiguration       = apperror.New(apperror.CodeConfigurationError)
	ErrNoMarketsFound      = apperror.New(apperror.CodeNoMarketsFound)
	ErrNoPriceData         = apperror.New(apperror.CodeNoPriceData)
	ErrInsufficientHistory = apperror.New(apperror.CodeInsufficientHistory)
	ErrSimulationDataGap   = apperror.New(apperror.CodeSimulationDataGap)
)

// ConfigurationError reports an invalid RebalancingConfig.
func ConfigurationError(detail string) *apperror.AppError {
	return apperror.Validation(apperror.CodeConfigurationError, detail)
}

// NoMarketsFoundError reports that discovery left nothing for the pair.
func NoMarketsFoundError(collateral, borrow string) *apperror.AppError {
	return apperror.New(apperror.CodeNoMarketsFound,
		apperror.WithMessage(fmt.Sprintf("No markets found for %s/%s", collateral, borrow)),
		apperror.WithContext(collateral+"/"+borrow))
}

// NoPriceDataError reports that no market carries usable USD prices.
func NoPriceDataError(detail string) *apperror.AppError {
	return apperror.New(apperror.CodeNoPriceData, apperror.WithContext(detail))
}

// InsufficientHistoryError reports a market with too little history to analyze.
func InsufficientHistoryError(marketID string, have, need int) *apperror.AppError {
	return apperror.New(apperror.CodeInsufficientHistory,
		apperror.WithContext(fmt.Sprintf("market %s: %d points, need %d", marketID, have, need)))
}

// SimulationDataGapError reports an empty aligned timeline.
func SimulationDataGapError(detail string) *apperror.AppError {
	return apperror.New(apperror.CodeSimulationDataGap, apperror.WithContext(detail))
}
