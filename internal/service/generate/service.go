// Package generate produces candidate patient replies for a doctor's
// question via a generative language model, with fixed Sinhala fallbacks so
// the patient is never shown fewer than three options or raw error text.
package generate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Fixed option triples. The UI contract is exactly three options, always.
var (
	// invalidQuestionOptions replaces a model call for empty input.
	invalidQuestionOptions = []string{
		"කරුණාකර වලංගු ප්‍රශ්නයක් ඇතුළත් කරන්න.",
		"මට පිළිතුරු දීමට ප්‍රශ්නයක් අවශ්‍යයි.",
		"ප්‍රශ්නය හිස් ය.",
	}

	// unclearQuestionOptions substitutes for malformed model output.
	unclearQuestionOptions = []string{
		"මට ඔබේ ප්‍රශ්නය තේරුම් ගැනීමට අපහසු විය",
		"කරුණාකර නැවත පැහැදිලි කරන්න",
		"මට පිළිතුරු දීමට අපහසුයි",
	}

	// generationErrorOptions substitutes for transport or API failure.
	generationErrorOptions = []string{
		"දෝෂයක් සිදුවිය. කරුණාකර නැවත උත්සාහ කරන්න.",
		"මට පිළිතුරු ජනනය කිරීමට නොහැකි විය.",
		"කරුණාකර පසුව උත්සාහ කරන්න.",
	}
)

const promptTemplate = `
You are a medical assistant helping doctors communicate with Sinhala-speaking patients.
STRICTLY FOLLOW THESE RULES:
1. Respond ONLY in Sinhala script (සිංහල අක්ෂර)
2. Never use English letters, numbers or symbols
3. Format responses exactly like this:

ප්‍රතිචාරය 1: [Full Sinhala sentence]
ප්‍රතිචාරය 2: [Full Sinhala sentence]
ප්‍රතිචාරය 3: [Full Sinhala sentence]

Doctor's question: %s
`

// ModelClient is the raw text-completion collaborator behind the service.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service implements ports.OptionGenerator over a ModelClient.
type Service struct {
	model   ModelClient
	timeout time.Duration
}

// NewService creates the generation service. timeout bounds each model
// call; zero means 15 seconds.
func NewService(model ModelClient, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{model: model, timeout: timeout}
}

// PatientOptions returns exactly three Sinhala candidate replies for the
// doctor's question. Empty input short-circuits to the invalid-question
// triple without touching the model; upstream failure and malformed output
// fall back to fixed triples rather than surfacing as errors.
func (s *Service) PatientOptions(ctx context.Context, doctorQuestion string) ([]string, error) {
	if strings.TrimSpace(doctorQuestion) == "" {
		return triple(invalidQuestionOptions), nil
	}

	if s.model == nil {
		return triple(generationErrorOptions), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.model.Complete(callCtx, fmt.Sprintf(promptTemplate, doctorQuestion))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[generate] model call failed: %v", err)
		return triple(generationErrorOptions), nil
	}

	options := ParseOptions(raw)
	if len(options) < optionCount {
		log.Printf("[generate] only %d valid candidates parsed, using fallback", len(options))
		return triple(unclearQuestionOptions), nil
	}
	return options, nil
}

func triple(options []string) []string {
	copied := make([]string, optionCount)
	copy(copied, options)
	return copied
}
