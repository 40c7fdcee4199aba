package lending

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateLoanNumber produces a human-readable loan reference:
// LN-<yyyymmdd>-<hhmmss><4-char random suffix>. The random suffix
// keeps same-second generations apart; a unique index on the column
// catches the remaining collisions.
func GenerateLoanNumber(at time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("LN-%s-%s%s", at.Format("20060102"), at.Format("150405"), suffix)
}

// GenerateApplicationNumber produces an application reference in the
// same shape with an APP prefix.
func GenerateApplicationNumber(at time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("APP-%s-%s%s", at.Format("20060102"), at.Format("150405"), suffix)
}
