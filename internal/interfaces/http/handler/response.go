package handler

// BalanceData carries a single balance figure
type BalanceData struct {
	Balance float64 `json:"balance"`
}
