package estimate

import (
	"net/mail"
	"strings"
)

// addressOf extracts the bare address from a From header value.
func addressOf(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(from)
	if err != nil {
		return fallbackAddress(from)
	}
	for _, addr := range addrs {
		if a := strings.ToLower(strings.TrimSpace(addr.Address)); a != "" {
			return a
		}
	}
	return ""
}

func fallbackAddress(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.Trim(raw, "<> ")
	if !strings.Contains(raw, "@") {
		return ""
	}
	if fields := strings.Fields(raw); len(fields) > 0 {
		for _, f := range fields {
			if strings.Contains(f, "@") {
				return strings.Trim(f, "<>\"")
			}
		}
	}
	return raw
}
