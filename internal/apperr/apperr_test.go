package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alan-mat/docqa/internal/apperr"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		err      error
		expected apperr.Kind
	}{
		{apperr.Input("parse", base), apperr.KindInput},
		{apperr.External("embed", base), apperr.KindExternal},
		{apperr.Internal("index", base), apperr.KindInternal},
		{base, apperr.KindInternal},
		{fmt.Errorf("outer: %w", apperr.Input("parse", base)), apperr.KindInput},
	}

	for _, c := range cases {
		if got := apperr.KindOf(c.err); got != c.expected {
			t.Errorf("KindOf(%v), expected '%s', got '%s'", c.err, c.expected, got)
		}
	}
}

func TestWrapNil(t *testing.T) {
	if err := apperr.External("noop", nil); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := apperr.External("generate", base)
	if !errors.Is(err, base) {
		t.Errorf("expected wrapped error to match base")
	}
	if err.Error() != "generate: boom" {
		t.Errorf("unexpected message '%s'", err.Error())
	}
}

type temporaryErr bool

func (e temporaryErr) Error() string   { return "temporary" }
func (e temporaryErr) Temporary() bool { return bool(e) }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"unavailable", apperr.External("query", status.Error(codes.Unavailable, "down")), true},
		{"deadline", apperr.External("query", context.DeadlineExceeded), true},
		{"invalid argument", apperr.External("query", status.Error(codes.InvalidArgument, "bad")), false},
		{"input", apperr.Input("query", status.Error(codes.Unavailable, "down")), false},
		{"temporary", apperr.External("embed", temporaryErr(true)), true},
		{"permanent", apperr.External("embed", temporaryErr(false)), false},
		{"nil", nil, false},
	}

	for _, c := range cases {
		if got := apperr.IsRetryable(c.err); got != c.expected {
			t.Errorf("%s: expected %v, got %v", c.name, c.expected, got)
		}
	}
}
