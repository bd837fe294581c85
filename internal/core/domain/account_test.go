package domain

import "testing"

func TestNormalizeIdentifier(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		kind IdentifierKind
	}{
		{"  Ana@Example.COM ", "ana@example.com", IdentifierEmail},
		{"+591 7123-4567", "+59171234567", IdentifierPhone},
		{"59171234567", "+59171234567", IdentifierPhone},
		{"(591) 7123.4567", "+59171234567", IdentifierPhone},
		{"12345", "12345", IdentifierUnknown},
		{"", "", IdentifierUnknown},
	}

	for _, tc := range cases {
		got := NormalizeIdentifier(tc.raw)
		if got != tc.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tc.raw, got, tc.want)
		}
		if kind := ClassifyIdentifier(got); kind != tc.kind {
			t.Errorf("ClassifyIdentifier(%q) = %s, want %s", got, kind, tc.kind)
		}
	}
}
