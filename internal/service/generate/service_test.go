package generate

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type fakeModel struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (m *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return m.response, m.err
}

func TestPatientOptionsParsesModelOutput(t *testing.T) {
	model := &fakeModel{response: `ප්‍රතිචාරය 1: මට හොඳින් දැනෙනවා.
ප්‍රතිචාරය 2: ටිකක් අමාරුයි.
ප්‍රතිචාරය 3: මට නින්ද යන්නේ නැහැ.`}
	svc := NewService(model, time.Second)

	got, err := svc.PatientOptions(context.Background(), "ඔබට කොහොමද?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"මට හොඳින් දැනෙනවා.",
		"ටිකක් අමාරුයි.",
		"මට නින්ද යන්නේ නැහැ.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(model.prompts))
	}
}

func TestPatientOptionsEmptyQuestionSkipsModel(t *testing.T) {
	model := &fakeModel{}
	svc := NewService(model, time.Second)

	got, err := svc.PatientOptions(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, invalidQuestionOptions) {
		t.Fatalf("got %q, want invalid-question fallback", got)
	}
	if model.calls != 0 {
		t.Fatal("model must not be called for empty input")
	}
}

func TestPatientOptionsNilModelFallsBack(t *testing.T) {
	svc := NewService(nil, time.Second)

	got, err := svc.PatientOptions(context.Background(), "ඔබට කොහොමද?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, generationErrorOptions) {
		t.Fatalf("got %q, want generation-error fallback", got)
	}
}

func TestPatientOptionsModelFailureFallsBack(t *testing.T) {
	model := &fakeModel{err: errors.New("quota exceeded")}
	svc := NewService(model, time.Second)

	got, err := svc.PatientOptions(context.Background(), "ඔබට කොහොමද?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, generationErrorOptions) {
		t.Fatalf("got %q, want generation-error fallback", got)
	}
}

func TestPatientOptionsMalformedOutputFallsBack(t *testing.T) {
	model := &fakeModel{response: "ප්‍රතිචාරය 1: එක පමණයි"}
	svc := NewService(model, time.Second)

	got, err := svc.PatientOptions(context.Background(), "ඔබට කොහොමද?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, unclearQuestionOptions) {
		t.Fatalf("got %q, want unclear-question fallback", got)
	}
}

func TestPatientOptionsCancelledContextPropagates(t *testing.T) {
	model := &fakeModel{}
	svc := NewService(model, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.PatientOptions(ctx, "ඔබට කොහොමද?")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPatientOptionsFallbackCopiesAreIndependent(t *testing.T) {
	svc := NewService(nil, time.Second)

	first, _ := svc.PatientOptions(context.Background(), "ප්‍රශ්නය")
	first[0] = "tampered"

	second, _ := svc.PatientOptions(context.Background(), "ප්‍රශ්නය")
	if second[0] == "tampered" {
		t.Fatal("fallback triple shares backing array across calls")
	}
}
