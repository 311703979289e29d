package ib

import "strings"

// SecType is the provider's security type code.
type SecType string

const (
	SecTypeStock     SecType = "STK"
	SecTypeOption    SecType = "OPT"
	SecTypeFutureOpt SecType = "FOP"
	SecTypeCFD       SecType = "CFD"
	SecTypeFuture    SecType = "FUT"
	SecTypeCash      SecType = "CASH"
	SecTypeForexCFD  SecType = "FXCFD"
	SecTypeBond      SecType = "BOND"
)

const (
	DefaultExchange = "SMART"
	DefaultCurrency = "USD"
)

var secTypes = map[string]SecType{
	"STK":   SecTypeStock,
	"OPT":   SecTypeOption,
	"FOP":   SecTypeFutureOpt,
	"CFD":   SecTypeCFD,
	"FUT":   SecTypeFuture,
	"CASH":  SecTypeCash,
	"FXCFD": SecTypeForexCFD,
	"BOND":  SecTypeBond,
}

// ParseSecType maps a provider code (case-insensitive) to a SecType.
func ParseSecType(s string) (SecType, bool) {
	t, ok := secTypes[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}

// Contract describes the instrument a request is made for.
type Contract struct {
	Symbol   string  `json:"symbol"`
	SecType  SecType `json:"sec_type"`
	Exchange string  `json:"exchange"`
	Currency string  `json:"currency"`
}

// StockContract returns a SMART-routed USD stock contract.
func StockContract(symbol string) Contract {
	return Contract{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		SecType:  SecTypeStock,
		Exchange: DefaultExchange,
		Currency: DefaultCurrency,
	}
}
