// Package currency manages the display currency preference and
// renders amounts in it.
package currency

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"moneymap/internal/storage"
)

// Code is an ISO 4217 currency code.
type Code string

const (
	GBP Code = "GBP"
	EUR Code = "EUR"

	Default = GBP
)

// Meta carries what the presentation layer needs for a currency.
type Meta struct {
	Code   Code   `json:"code"`
	Symbol string `json:"symbol"`
	Label  string `json:"label"`

	locale language.Tag
}

var supported = map[Code]Meta{
	GBP: {Code: GBP, Symbol: "£", Label: "British Pound", locale: language.BritishEnglish},
	EUR: {Code: EUR, Symbol: "€", Label: "Euro", locale: language.MustParse("en-IE")},
}

// Supported lists the selectable currencies in a fixed order.
func Supported() []Meta {
	return []Meta{supported[GBP], supported[EUR]}
}

// Parse validates a code against the supported set. The input is also
// checked against the ISO registry so typos fail loudly.
func Parse(raw string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(raw)))
	if _, err := currency.ParseISO(string(code)); err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", raw, err)
	}
	if _, ok := supported[code]; !ok {
		return "", fmt.Errorf("unsupported currency %q", raw)
	}
	return code, nil
}

// Format renders an amount in the given currency, locale-aware.
// Expense sign conventions are the caller's business.
func Format(code Code, amount float64) string {
	meta, ok := supported[code]
	if !ok {
		meta = supported[Default]
	}
	p := message.NewPrinter(meta.locale)
	if amount < 0 {
		return p.Sprintf("-%s%.2f", meta.Symbol, -amount)
	}
	return p.Sprintf("%s%.2f", meta.Symbol, amount)
}

// Service persists the preference in the local adapter.
type Service struct {
	kv storage.KV
}

func NewService(kv storage.KV) *Service {
	return &Service{kv: kv}
}

// Get returns the stored preference. A missing or unrecognized value
// settles to the default and is written back so later reads agree.
func (s *Service) Get() Code {
	raw, ok, err := s.kv.Get(storage.KeyCurrency)
	if err == nil && ok {
		if code, perr := Parse(raw); perr == nil {
			return code
		}
	}
	_ = s.kv.Set(storage.KeyCurrency, string(Default))
	return Default
}

// Set stores a new preference.
func (s *Service) Set(raw string) (Code, error) {
	code, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(storage.KeyCurrency, string(code)); err != nil {
		return "", fmt.Errorf("failed to persist currency preference: %w", err)
	}
	return code, nil
}
