// internal/utils/money.go
package utils

const (
	// BasisPointsDenominator is 100% expressed in basis points.
	BasisPointsDenominator int64 = 10000
	// MaxFeeBasisPoints caps the platform fee at 30%.
	MaxFeeBasisPoints int64 = 3000
)

// SplitFee returns floor(gross*bps/10000) and the remainder for the
// recipient. The split is computed without forming gross*bps so it cannot
// overflow for any non-negative gross and bps <= 10000.
func SplitFee(gross, basisPoints int64) (fee, net int64) {
	fee = (gross/BasisPointsDenominator)*basisPoints +
		(gross%BasisPointsDenominator)*basisPoints/BasisPointsDenominator
	return fee, gross - fee
}
