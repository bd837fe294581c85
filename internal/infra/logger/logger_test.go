package logger

import (
	"context"
	"testing"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"john.doe@example.com": "joh***@example.com",
		"ana@x.com":            "ana***@x.com",
		"":                     "",
	}
	for input, want := range cases {
		if got := MaskEmail(input); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+59171234567"); got != "+591***4567" {
		t.Fatalf("unexpected masked phone %q", got)
	}
	if got := MaskPhone("123"); got != "***" {
		t.Fatalf("expected short phone to be fully masked, got %q", got)
	}
}

func TestMaskIdentifierDispatchesByShape(t *testing.T) {
	if got := MaskIdentifier("ana@x.com"); got != "ana***@x.com" {
		t.Fatalf("expected email masking, got %q", got)
	}
	if got := MaskIdentifier("71234567"); got == "71234567" {
		t.Fatalf("expected phone masking, got %q", got)
	}
}

func TestMaskIP(t *testing.T) {
	if got := MaskIP("192.168.1.100"); got != "192.168.*.*" {
		t.Fatalf("unexpected masked ip %q", got)
	}
}

func TestWithContextWithoutLogger(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey{}, "req-1")
	if WithContext(ctx) == nil {
		t.Fatal("expected a logger")
	}
}
