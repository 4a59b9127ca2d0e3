package generate

import (
	"regexp"
	"strings"

	"github.com/medilink-lk/medibridge/backend/internal/sinhala"
)

// optionCount is the number of candidate replies shown to the patient.
const optionCount = 3

// responseLabel is the Sinhala "Response" label the prompt instructs the
// model to prefix each line with.
const responseLabel = "ප්‍රතිචාරය"

var numberedLine = regexp.MustCompile(`^\d+[.)]\s*`)

// ParseOptions extracts candidate replies from the model's line-oriented
// output. A line qualifies if it carries the response label or a numbered
// prefix; the extracted sentence must be non-empty and free of Latin
// letters and digits. Returns the first three valid candidates, or fewer
// when the output is malformed.
func ParseOptions(raw string) []string {
	options := make([]string, 0, optionCount)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var candidate string
		switch {
		case strings.Contains(line, responseLabel), strings.Contains(line, ":"):
			parts := strings.SplitN(line, ":", 2)
			if len(parts) < 2 {
				continue
			}
			candidate = strings.TrimSpace(parts[1])
		case numberedLine.MatchString(line):
			candidate = strings.TrimSpace(numberedLine.ReplaceAllString(line, ""))
		default:
			continue
		}

		if candidate == "" || sinhala.ContainsLatin(candidate) {
			continue
		}

		options = append(options, candidate)
		if len(options) == optionCount {
			break
		}
	}

	return options
}
