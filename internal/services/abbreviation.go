package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

var abbreviationPattern = regexp.MustCompile(`^[NMH]\d{2}(0[1-9]|1[0-2])\d{4,}$`)

// sequencePeriod is the YYMM scope of an abbreviation sequence.
func sequencePeriod(t time.Time) string {
	return t.Format("0601")
}

// formatAbbreviation renders {P}{YY}{MM}{NNNN}. Sequences past 9999
// keep growing in width instead of wrapping.
func formatAbbreviation(priority models.Priority, at time.Time, seq int) string {
	return fmt.Sprintf("%s%s%04d", priority.Initial(), sequencePeriod(at), seq)
}

// IsGeneratedAbbreviation reports whether code has the shape of a
// user created task code.
func IsGeneratedAbbreviation(code string) bool {
	return abbreviationPattern.MatchString(code)
}
