package birdchat

import (
	"strconv"
	"strings"
	"testing"
)

func TestVersionAgree(t *testing.T) {
	s := VersionString()
	if s == "" {
		t.Fatal("empty version string")
	}
	if string(VersionBytes()) != s {
		t.Fatalf("bytes %q != string %q", VersionBytes(), s)
	}
	n := VersionNumber()
	if n <= 0 {
		t.Fatalf("version number %v", n)
	}
	major := strconv.Itoa(int(n))
	if !strings.HasPrefix(s, major+".") && s != major {
		t.Fatalf("number %v does not match string %q", n, s)
	}
}

func TestVersionBytesIsCopy(t *testing.T) {
	b := VersionBytes()
	b[0] = 'x'
	if VersionString()[0] == 'x' {
		t.Fatal("mutating VersionBytes leaked into the process-wide version")
	}
}

func TestParseVersionNumber(t *testing.T) {
	cases := map[string]float64{
		"3.0.0":      3.0,
		"v3.12.1":    3.12,
		"4":          4,
		"":           0,
		"dev":        0,
		"3.x.1":      0,
		"3.1.0-beta": 3.1,
	}
	for in, want := range cases {
		if got := parseVersionNumber(in); got != want {
			t.Errorf("parseVersionNumber(%q) = %v, want %v", in, got, want)
		}
	}
}
