package wizard_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gradeloop/gradeloop/internal/wizard"
)

type emptyError struct{}

func (emptyError) Error() string { return "  " }

func TestNormalizeErrorPriority(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{
			"detail wins over message",
			&wizard.APIError{StatusCode: 500, Detail: "teacher not found", Message: "ignored"},
			"teacher not found",
		},
		{
			"message when detail blank",
			&wizard.APIError{StatusCode: 500, Detail: "  ", Message: "internal error"},
			"internal error",
		},
		{
			"wrapped api error still unwraps",
			fmt.Errorf("update session: %w", &wizard.APIError{StatusCode: 404, Detail: "grading session not found"}),
			"grading session not found",
		},
		{
			"plain error text",
			errors.New("connection refused"),
			"connection refused",
		},
		{
			"blank error text falls back to generic",
			emptyError{},
			"an unknown error occurred",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := wizard.NormalizeError(c.err); got != c.want {
				t.Fatalf("NormalizeError = %q, want %q", got, c.want)
			}
		})
	}
}

func TestAPIErrorText(t *testing.T) {
	e := &wizard.APIError{StatusCode: 502}
	if e.Error() != "request failed with status 502" {
		t.Fatalf("Error() = %q", e.Error())
	}
	e = &wizard.APIError{StatusCode: 400, Message: "bad json"}
	if e.Error() != "bad json" {
		t.Fatalf("Error() = %q", e.Error())
	}
}
