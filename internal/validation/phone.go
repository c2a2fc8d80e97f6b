// Package validation содержит функции валидации входных данных.
package validation

import "strings"

const countryCode = "254"

// NormalizePhone приводит номер мобильного телефона к международному формату
// провайдера (254XXXXXXXXX). Возвращает false, если номер не распознан.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, " ", "")

	if s == "" || !isDigits(s) {
		return "", false
	}

	switch {
	case strings.HasPrefix(s, countryCode):
		// уже в международном формате
	case strings.HasPrefix(s, "0"):
		s = countryCode + s[1:]
	default:
		s = countryCode + s
	}

	if len(s) != 12 {
		return "", false
	}

	return s, true
}

func isDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
