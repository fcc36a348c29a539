package esmutils

import "github.com/shopspring/decimal"

var thousand = decimal.NewFromInt(1000)

// Round half away from zero to whole watts. Negative values are kept.
func KwToW(kw decimal.Decimal) int64 {
	return kw.Mul(thousand).Round(0).IntPart()
}

// Same as KwToW but nil stays nil
func KwToWPtr(kw *decimal.Decimal) *int64 {
	if kw == nil {
		return nil
	}
	w := KwToW(*kw)
	return &w
}

// Convert m3 to dm3 for storage - No negative values
func M3ToDM3(m3 decimal.Decimal) uint32 {
	if m3.IsNegative() {
		return 0
	}
	return uint32(m3.Mul(thousand).Round(0).IntPart()) // 1 m³ = 1000 dm³
}
