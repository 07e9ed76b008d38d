package services

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

const tradeNumberSuffixLen = 6

// NewTradeNumber returns a human-readable trade number such as
// TR-20240131-154501-7fQx2K
func NewTradeNumber(now time.Time) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// a nonzero leading byte keeps the encoding at least 10 characters long
	buf[0] |= 0x80

	suffix := base58.Encode(buf)[:tradeNumberSuffixLen]
	return fmt.Sprintf("TR-%s-%s", now.UTC().Format("20060102-150405"), suffix), nil
}
