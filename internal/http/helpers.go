package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseID extracts a positive int64 from the named query or form value.
func parseID(r *http.Request, name string) (int64, bool) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// parseYear extracts a year from query parameters, defaulting to the
// current year.
func parseYear(r *http.Request) int {
	year := time.Now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	return year
}

// parseDays extracts the recency threshold, defaulting to
// DefaultRecencyDays and rejecting non-positive values.
func parseDays(r *http.Request) int {
	days := DefaultRecencyDays
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			days = d
		}
	}
	return days
}

// formatEuros formats cents as a Euro currency string (e.g., "€12,34").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func recencyKey(days int) string {
	return "recency:" + strconv.Itoa(days)
}

func statsKeyPrefix(customerID int64) string {
	return "stats:" + strconv.FormatInt(customerID, 10)
}
