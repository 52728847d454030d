// Package docnum generates human-readable document numbers such as
// BILL-20250114-3F9A0C.
package docnum

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns prefix-YYYYMMDD-XXXXXX with six random upper-case hex digits.
func New(prefix string, at time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + at.UTC().Format("20060102") + "-" + strings.ToUpper(hex[:6])
}
