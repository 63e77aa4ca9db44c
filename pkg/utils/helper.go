package utils

import (
	"math"
	"strconv"
	"time"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// MinutesCeil renders a duration as whole minutes, rounding up.
func MinutesCeil(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
