package inventory

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateSerial builds a serial number of the form SN-<prefix>-<6 digits>.
// The prefix is the product's three-character code prefix.
func GenerateSerial(prefix string) string {
	return fmt.Sprintf("SN-%s-%06d", prefix, randomSixDigits())
}

// randomSixDigits returns a uniformly random value in [0, 999999].
func randomSixDigits() int {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the platform entropy source is gone;
		// fall back to the clock rather than refuse to label hardware.
		return int(time.Now().UnixNano() % 1000000)
	}
	return int(binary.BigEndian.Uint64(buf[:]) % 1000000)
}

// WarrantyExpiry computes the warranty end date: the installation instant
// plus 365 days per contract year. Contract years are flat 365-day spans,
// matching how the windows were sold, so leap days do not shift expiry.
func WarrantyExpiry(installation time.Time, warrantyYears int) time.Time {
	if warrantyYears < 0 {
		warrantyYears = 0
	}
	return installation.Add(time.Duration(warrantyYears) * 365 * 24 * time.Hour)
}
