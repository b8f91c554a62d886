// Package money provides shared conversions between fen and yuan.
// Gantry transaction fees are stored in fen (integer hundredths of a yuan);
// entrance/exit toll amounts are stored in yuan.
package money

import "fmt"

// FenPerYuan is the number of fen in one yuan.
const FenPerYuan = 100

// FenToYuan converts an integer fen amount to yuan.
func FenToYuan(fen int64) float64 {
	return float64(fen) / FenPerYuan
}

// YuanToFen converts a yuan amount to whole fen, truncating sub-fen
// fractions.
func YuanToFen(yuan float64) int64 {
	return int64(yuan * FenPerYuan)
}

// FormatYuan renders a yuan amount with two decimal places.
func FormatYuan(yuan float64) string {
	return fmt.Sprintf("%.2f", yuan)
}

// FormatFen renders a fen amount as a yuan string.
func FormatFen(fen int64) string {
	return FormatYuan(FenToYuan(fen))
}
