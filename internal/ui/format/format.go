// Package format renders pipeline numbers for people: grouped thousands,
// fixed decimals, currency and percent signs.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var displayLanguage = language.English

func printer() *message.Printer {
	return message.NewPrinter(displayLanguage)
}

func Currency(v float64) string {
	return printer().Sprintf("$%.2f", v)
}

// Count formats a whole-number total such as an order count.
func Count(v float64) string {
	return printer().Sprintf("%.0f", v)
}

func Int(n int) string {
	return printer().Sprintf("%d", n)
}

func Percent(v float64) string {
	return printer().Sprintf("%.2f%%", v)
}

// Decimal formats an aggregate value with two decimals.
func Decimal(v float64) string {
	return printer().Sprintf("%.2f", v)
}
