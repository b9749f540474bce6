package util

import (
	"strconv"
	"strings"
)

// ParseCents converts a decimal amount string ("12.34") to cents without
// going through floating point, so nothing past the cent is silently
// truncated.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, Invalid("amount", "is empty")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, Invalid("amount", "is not a number")
	}
	var cents int64
	if hasFrac {
		if len(frac) > 2 {
			return 0, Invalid("amount", "has sub-cent precision")
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, Invalid("amount", "is not a number")
		}
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}

// FormatCents renders cents as a two decimal amount string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// ImpactShare computes the caller's portion of a shared amount,
// rounded half away from zero. splitBy below 1 counts as 1.
func ImpactShare(amountCents int64, splitBy int) int64 {
	if splitBy <= 1 {
		return amountCents
	}
	d := int64(splitBy)
	if amountCents >= 0 {
		return (amountCents + d/2) / d
	}
	return -((-amountCents + d/2) / d)
}
