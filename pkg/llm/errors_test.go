package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("openai: rate limit exceeded"), true},
		{"http 429", errors.New("request failed with status 429"), true},
		{"overloaded", errors.New("anthropic: Overloaded"), true},
		{"service unavailable", errors.New("503 Service Unavailable"), true},
		{"timeout", errors.New("request timed out"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call model: %w", context.DeadlineExceeded), true},
		{"auth failure", errors.New("401 invalid api key"), false},
		{"bad request", errors.New("400 invalid request body"), false},
		{"round limit", ErrRoundLimit, false},
		{"generic", errors.New("something broke"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
