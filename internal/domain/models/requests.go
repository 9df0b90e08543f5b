package models

// Requests for the HTTP API.

type TechnicalRequest struct {
	Ticker    string `query:"ticker" json:"ticker" validate:"required"`
	StartDate string `query:"start_date" json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Language  string `query:"language" json:"language" default:"en"`
}

type AllowedActionsRequest struct {
	Tickers        []string           `json:"tickers" validate:"required,min=1,dive,required"`
	Prices         map[string]float64 `json:"prices" validate:"required"`
	PositionLimits map[string]float64 `json:"position_limits"`
	MaxShares      map[string]int     `json:"max_shares"`
	Portfolio      PortfolioSnapshot  `json:"portfolio"`
}

type CycleHTTPRequest struct {
	Tickers      []string                            `json:"tickers" validate:"required,min=1,max=50,dive,required"`
	StartDate    string                              `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string                              `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Language     string                              `json:"language" default:"en"`
	Portfolio    *PortfolioSnapshot                  `json:"portfolio"`
	ExtraSignals map[string]map[string]AnalystSignal `json:"extra_signals"`
}

// ToCycleRequest converts the validated HTTP payload.
func (r *CycleHTTPRequest) ToCycleRequest() CycleRequest {
	return CycleRequest{
		Tickers:      r.Tickers,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Language:     r.Language,
		Portfolio:    r.Portfolio,
		ExtraSignals: r.ExtraSignals,
	}
}
