package dataset

// Canonical fundamental indicator names. The set is closed: configuration
// listing an unknown name fails validation at load time. New indicators are
// added here, never injected by free-form keys.
const (
	FundMarketCap       = "market_cap"
	FundPERatio         = "pe_ratio"
	FundPBRatio         = "pb_ratio"
	FundPSRatio         = "ps_ratio"
	FundEVEBITDA        = "ev_ebitda"
	FundROE             = "roe"
	FundROA             = "roa"
	FundROI             = "roi"
	FundGrossMargin     = "gross_margin"
	FundOperatingMargin = "operating_margin"
	FundNetMargin       = "net_margin"
	FundDebtToEquity    = "debt_to_equity"
	FundCurrentRatio    = "current_ratio"
	FundQuickRatio      = "quick_ratio"
	FundAssetTurnover   = "asset_turnover"
)

// Canonical macro series names (8 series)
const (
	MacroGDPGrowth        = "gdp_growth"
	MacroInflationRate    = "inflation_rate"
	MacroUnemploymentRate = "unemployment_rate"
	MacroFederalFundsRate = "federal_funds_rate"
	MacroVIXIndex         = "vix_index"
	MacroDollarIndex      = "dollar_index"
	MacroOilPrice         = "oil_price"
	MacroTenYearTreasury  = "ten_year_treasury"
)

// FundamentalIndicators returns the full closed set of fundamental
// indicator names in canonical order.
func FundamentalIndicators() []string {
	return []string{
		FundMarketCap, FundPERatio, FundPBRatio, FundPSRatio, FundEVEBITDA,
		FundROE, FundROA, FundROI, FundGrossMargin, FundOperatingMargin,
		FundNetMargin, FundDebtToEquity, FundCurrentRatio, FundQuickRatio,
		FundAssetTurnover,
	}
}

// MacroSeries returns the full closed set of macro series names in
// canonical order.
func MacroSeries() []string {
	return []string{
		MacroGDPGrowth, MacroInflationRate, MacroUnemploymentRate,
		MacroFederalFundsRate, MacroVIXIndex, MacroDollarIndex,
		MacroOilPrice, MacroTenYearTreasury,
	}
}

// IsFundamentalIndicator reports whether name is part of the closed
// fundamental indicator set.
func IsFundamentalIndicator(name string) bool {
	for _, n := range FundamentalIndicators() {
		if n == name {
			return true
		}
	}
	return false
}

// IsMacroSeries reports whether name is part of the closed macro series set
func IsMacroSeries(name string) bool {
	for _, n := range MacroSeries() {
		if n == name {
			return true
		}
	}
	return false
}
