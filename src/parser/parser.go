package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedRecord is the result of extracting a (category, amount) pair
// from one line of chat text.
type ParsedRecord struct {
	Category string
	Amount   int64
}

// The accepted input shapes, tried in order. Each one is a label, a
// separator, and a plain base-10 integer: "午餐 120", "午餐+120",
// "午餐：120", "午餐$120". Decimal points and signs never match.
var recordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s+(\d+)$`),
	regexp.MustCompile(`^(.+?)\+(\d+)$`),
	regexp.MustCompile(`^(.+?)：(\d+)$`),
	regexp.MustCompile(`^(.+?)\$(\d+)$`),
}

// Parse extracts a record from a raw message line. It returns nil when
// no pattern matches; a miss is the only failure signal.
func Parse(text string) *ParsedRecord {
	for _, pattern := range recordPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			// \d+ can still overflow int64; treat it like any other miss.
			continue
		}
		return &ParsedRecord{
			Category: strings.TrimSpace(m[1]),
			Amount:   amount,
		}
	}
	return nil
}
