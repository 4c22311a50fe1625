package risk

import "strings"

// UnknownSector groups tickers missing from the lookup.
const UnknownSector = "Unknown"

var defaultSectors = map[string]string{
	"BHP": "Materials",
	"RIO": "Materials",
	"FMG": "Materials",
	"MIN": "Materials",
	"PLS": "Materials",
	"LYC": "Materials",
	"NST": "Materials",
	"EVN": "Materials",
	"S32": "Materials",
	"CBA": "Financials",
	"WBC": "Financials",
	"NAB": "Financials",
	"ANZ": "Financials",
	"MQG": "Financials",
	"SUN": "Financials",
	"QBE": "Financials",
	"IAG": "Financials",
	"CSL": "Health Care",
	"RMD": "Health Care",
	"COH": "Health Care",
	"SHL": "Health Care",
	"WES": "Consumer Discretionary",
	"ALL": "Consumer Discretionary",
	"JBH": "Consumer Discretionary",
	"WOW": "Consumer Staples",
	"COL": "Consumer Staples",
	"TLS": "Communication Services",
	"REA": "Communication Services",
	"CAR": "Communication Services",
	"WDS": "Energy",
	"STO": "Energy",
	"WHC": "Energy",
	"ORG": "Utilities",
	"AGL": "Utilities",
	"APA": "Utilities",
	"GMG": "Real Estate",
	"SCG": "Real Estate",
	"SGP": "Real Estate",
	"TCL": "Industrials",
	"QAN": "Industrials",
	"BXB": "Industrials",
	"XRO": "Information Technology",
	"WTC": "Information Technology",
	"NXT": "Information Technology",
}

// SectorMap resolves tickers to sectors.
type SectorMap map[string]string

// NewSectorMap merges overrides over the built-in ASX table.
func NewSectorMap(overrides map[string]string) SectorMap {
	m := make(SectorMap, len(defaultSectors)+len(overrides))
	for k, v := range defaultSectors {
		m[k] = v
	}
	for k, v := range overrides {
		m[normalizeTicker(k)] = v
	}
	return m
}

// Sector returns the ticker's sector or UnknownSector.
func (m SectorMap) Sector(ticker string) string {
	if s, ok := m[normalizeTicker(ticker)]; ok {
		return s
	}
	return UnknownSector
}

func normalizeTicker(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	return strings.TrimSuffix(t, ".AX")
}
