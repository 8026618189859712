package http

import (
	"strings"

	"github.com/google/uuid"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// validID reports whether id has the shape of a stored identifier.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
