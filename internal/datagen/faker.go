//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen provides synthetic reference data generation.
package datagen

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// Currencies are the ISO codes used by generated instruments and funds.
var Currencies = []string{"USD", "EUR", "GBP", "JPY", "CHF", "CAD"}

// currencyWeights skews generated data toward USD.
var currencyWeights = []int{50, 20, 12, 8, 5, 5}

// Faker provides fake data generation using gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a new Faker with a random seed.
func NewFaker() *Faker {
	return &Faker{
		faker: gofakeit.New(uint64(time.Now().UnixNano())),
	}
}

// NewFakerWithSeed creates a new Faker with a specific seed for reproducibility.
func NewFakerWithSeed(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

// Company generates a random company name.
func (f *Faker) Company() string {
	return f.faker.Company()
}

// DateRange generates a random date within a range.
func (f *Faker) DateRange(start, end time.Time) time.Time {
	return f.faker.DateRange(start, end)
}

// RecentDate generates a date within the last n days.
func (f *Faker) RecentDate(days int) time.Time {
	now := time.Now().UTC()
	return f.faker.DateRange(now.AddDate(0, 0, -days), now)
}

// Int generates a random integer between min and max (inclusive).
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Int64 generates a random int64 between min and max (inclusive).
func (f *Faker) Int64(min, max int64) int64 {
	return int64(f.faker.IntRange(int(min), int(max)))
}

// Float64 generates a random float64 between min and max.
func (f *Faker) Float64(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Decimal generates a random decimal between min and max rounded to places.
func (f *Faker) Decimal(min, max float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(f.Float64(min, max)).Round(places)
}

// Bool generates a random boolean.
func (f *Faker) Bool() bool {
	return f.faker.Bool()
}

// Chance returns true with probability p.
func (f *Faker) Chance(p float64) bool {
	return f.Float64(0, 1) < p
}

// UUID generates a random UUID.
func (f *Faker) UUID() string {
	return f.faker.UUID()
}

// Choose returns a random element from the given slice.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted returns a random element based on weights.
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	r := f.Int(1, totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return items[i]
		}
	}

	return items[len(items)-1]
}

// Letters generates n random upper case letters.
func (f *Faker) Letters(n int) string {
	return strings.ToUpper(f.faker.LetterN(uint(n)))
}

// Digits generates a random string of digits of length n.
func (f *Faker) Digits(n int) string {
	return f.faker.DigitN(uint(n))
}

// Currency returns a weighted random ISO currency code.
func (f *Faker) Currency() string {
	return ChooseWeighted(f, Currencies, currencyWeights)
}

// Ticker returns a ticker that is unique for each seq within one batch.
func (f *Faker) Ticker(seq int) string {
	return fmt.Sprintf("%s%d", f.Letters(3), seq)
}

// Cusip returns a nine character CUSIP-shaped identifier.
func (f *Faker) Cusip() string {
	return f.Digits(3) + f.Letters(3) + f.Digits(3)
}

// FundName returns a fund name that is unique for each seq within one batch.
func (f *Faker) FundName(seq int) string {
	word := strings.ToUpper(Truncate(strings.ReplaceAll(f.faker.Company(), " ", ""), 8))
	return fmt.Sprintf("%s-%d", word, seq)
}

// Truncate truncates a string to max length if needed.
func Truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
