package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageSummary aggregates a user's credit activity over a reporting window.
type UsageSummary struct {
	UserID             string          `json:"userID"`
	From               time.Time       `json:"from"`
	To                 time.Time       `json:"to"`
	TotalGranted       int64           `json:"totalGranted"`
	TotalConsumed      int64           `json:"totalConsumed"` // absolute value
	GrantCount         int64           `json:"grantCount"`
	ConsumptionCount   int64           `json:"consumptionCount"`
	AverageConsumption decimal.Decimal `json:"averageConsumption"` // credits per consumption
}
