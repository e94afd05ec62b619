package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodKey builds the paidMonths key for a card payment period.
// Format: "{cardID}-{year}-{month}", month 1-12 without zero padding.
func PeriodKey(cardID, year, month int) string {
	return fmt.Sprintf("%d-%d-%d", cardID, year, month)
}

// ParsePeriodKey splits a paidMonths key back into its parts.
func ParsePeriodKey(key string) (cardID, year, month int, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed period key %q", key)
	}
	if cardID, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("malformed period key %q", key)
	}
	if year, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("malformed period key %q", key)
	}
	if month, err = strconv.Atoi(parts[2]); err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("malformed period key %q", key)
	}
	return cardID, year, month, nil
}

// CurrentPeriod returns the year and month of the running payment period.
func CurrentPeriod() (year, month int) {
	now := time.Now()
	return now.Year(), int(now.Month())
}

// PreviousPeriod returns the year and month preceding the given period.
func PreviousPeriod(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}
