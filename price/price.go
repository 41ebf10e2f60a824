// Package price normalizes locale-ambiguous price strings and currency
// hints into machine-usable values.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

// reKeep strips everything that cannot be part of a numeric price.
var reKeep = regexp.MustCompile(`[^0-9,.\-]`)

// reCurrency matches a 3-letter ISO 4217 code anywhere in the input.
var reCurrency = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|JPY|CNY|CAD|AUD|CHF|SEK|NOK|DKK|PLN|CZK|HUF|RON|BGN|TRY|RUB|UAH|INR|KRW|SGD|HKD|TWD|THB|MYR|IDR|PHP|VND|BRL|MXN|ARS|CLP|COP|PEN|ZAR|ILS|AED|SAR|NZD)\b`)

// CleanPrice parses a raw price string into a float.
//
// Disambiguation rule for grouping vs. decimal separators: when both a
// comma and a period are present, whichever appears later in the string
// is the decimal point and the other is grouping; when only a comma is
// present it is the decimal point; otherwise the string parses directly.
// Returns nil on empty or unparsable input, never an error.
func CleanPrice(raw string) *float64 {
	s := reKeep.ReplaceAllString(raw, "")
	if s == "" {
		return nil
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European style: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// US style: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Comma alone is a decimal point: 29,99
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseCurrency scans the input for a known 3-letter ISO currency code
// and returns the uppercased match, or nil when none is found.
func ParseCurrency(raw string) *string {
	m := reCurrency.FindString(raw)
	if m == "" {
		return nil
	}
	c := strings.ToUpper(m)
	return &c
}

// SymbolCurrency maps a currency symbol in the input to its most common
// ISO code. Used by extraction as a weaker hint when no code is present.
// Multi-character symbols are checked first so "R$" never reads as "$".
func SymbolCurrency(raw string) *string {
	for _, sc := range currencySymbols {
		if strings.Contains(raw, sc.symbol) {
			c := sc.code
			return &c
		}
	}
	return nil
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"R$", "BRL"},
	{"zł", "PLN"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₩", "KRW"},
	{"₺", "TRY"},
	{"₴", "UAH"},
}
