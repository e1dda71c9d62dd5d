package fx

import "testing"

func TestConvertRoundsAtConversion(t *testing.T) {
	table := Table{
		"EUR": {EUR: 1.0, USD: 1.10},
		"GBP": {EUR: 1.176471, USD: 1.294118},
	}
	eur, usd := Convert(333.33, "GBP", table)
	if eur != 392.16 {
		t.Fatalf("expected 392.16 EUR, got %v", eur)
	}
	if usd != 431.38 {
		t.Fatalf("expected 431.38 USD, got %v", usd)
	}
}

func TestConvertBlankCurrencyDefaultsToEUR(t *testing.T) {
	table := FallbackTable()
	eur, usd := Convert(100, "  ", table)
	if eur != 100 {
		t.Fatalf("blank currency must be treated as EUR, got %v", eur)
	}
	if usd != 116 {
		t.Fatalf("expected 116 USD via EUR entry, got %v", usd)
	}
}

func TestConvertUnknownCurrencyUsesEUREntry(t *testing.T) {
	table := FallbackTable()
	eur, _ := Convert(50, "AUD", table)
	if eur != 50 {
		t.Fatalf("unknown currency must use the EUR entry, got %v", eur)
	}
}
