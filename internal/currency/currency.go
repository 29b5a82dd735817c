// Package currency resolves ISO 4217 numeric currency codes to their
// 3-letter alphabetic codes. The bank API reports currencies numerically
// while ledger entries use alphabetic codes.
package currency

import "fmt"

// Resolver maps a numeric ISO 4217 code to a 3-letter alphabetic code.
// The second return value reports whether the code is known.
type Resolver interface {
	Alpha3(numeric int) (string, bool)
}

// Table is a Resolver backed by a static ISO 4217 table covering the
// currencies the bank issues cards in plus common transaction currencies.
type Table struct{}

var numericToAlpha3 = map[int]string{
	36:  "AUD",
	124: "CAD",
	156: "CNY",
	203: "CZK",
	208: "DKK",
	348: "HUF",
	352: "ISK",
	376: "ILS",
	392: "JPY",
	398: "KZT",
	414: "KWD",
	440: "LTL",
	498: "MDL",
	554: "NZD",
	578: "NOK",
	634: "QAR",
	643: "RUB",
	702: "SGD",
	752: "SEK",
	756: "CHF",
	784: "AED",
	818: "EGP",
	826: "GBP",
	840: "USD",
	933: "BYN",
	946: "RON",
	949: "TRY",
	975: "BGN",
	978: "EUR",
	980: "UAH",
	981: "GEL",
	985: "PLN",
}

var alpha3ToNumeric = func() map[string]int {
	m := make(map[string]int, len(numericToAlpha3))
	for numeric, alpha := range numericToAlpha3 {
		m[alpha] = numeric
	}
	return m
}()

// Alpha3 implements Resolver.
func (Table) Alpha3(numeric int) (string, bool) {
	code, ok := numericToAlpha3[numeric]
	return code, ok
}

// Numeric returns the numeric ISO 4217 code for a 3-letter code.
func Numeric(alpha3 string) (int, bool) {
	numeric, ok := alpha3ToNumeric[alpha3]
	return numeric, ok
}

// MustAlpha3 resolves a numeric code using the given resolver and returns
// an error for unknown codes. Each statement carries a currency code, so an
// unknown code means the emitted entry would be unusable.
func MustAlpha3(r Resolver, numeric int) (string, error) {
	code, ok := r.Alpha3(numeric)
	if !ok {
		return "", fmt.Errorf("unknown ISO 4217 numeric currency code %d", numeric)
	}
	return code, nil
}
