package sampleapp

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

// defaultPromoCodes are always accepted, in addition to any codes loaded from
// files at startup.
var defaultPromoCodes = []string{
	"WELCOME10",
	"WAFFLES",
	"LAUNCHDAY",
}

// PromoCodeValidator answers whether a promo code is valid. Registration
// checks every submitted code, so the common case of a mistyped or made-up
// code is answered by a Bloom filter without touching the exact set.
type PromoCodeValidator struct {
	filter *bloom.BloomFilter
	codes  map[string]bool
}

const expectedPromoCodes = 100000

// NewPromoCodeValidator builds a validator from the built-in codes plus the
// contents of the given files, one code per line. Blank lines and lines
// starting with '#' are skipped.
func NewPromoCodeValidator(files []string) (*PromoCodeValidator, error) {
	v := &PromoCodeValidator{
		filter: bloom.NewWithEstimates(expectedPromoCodes, 0.001),
		codes:  make(map[string]bool),
	}
	for _, code := range defaultPromoCodes {
		v.add(code)
	}
	for _, path := range files {
		if err := v.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading promo codes from %s: %w", path, err)
		}
	}
	return v, nil
}

func (v *PromoCodeValidator) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v.add(line)
	}
	return scanner.Err()
}

func (v *PromoCodeValidator) add(code string) {
	normalized := normalizePromoCode(code)
	v.filter.AddString(normalized)
	v.codes[normalized] = true
}

// Valid reports whether the code is recognized. Codes are case-insensitive.
func (v *PromoCodeValidator) Valid(code string) bool {
	normalized := normalizePromoCode(code)
	if !v.filter.TestString(normalized) {
		return false
	}
	return v.codes[normalized]
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
