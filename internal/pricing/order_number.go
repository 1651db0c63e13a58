package pricing

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// SuffixSource returns a value in [0, 10000).
type SuffixSource func() int

// GenerateOrderNumber formats ORD-YYYYMMDD-HHMMSS-NNNN using the UTC time.
func GenerateOrderNumber(now time.Time, suffix SuffixSource) string {
	if suffix == nil {
		suffix = RandomSuffix
	}
	n := suffix() % 10000
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102-150405"), n)
}

func RandomSuffix() int {
	v, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return int(time.Now().UnixNano() % 10000)
	}
	return int(v.Int64())
}
