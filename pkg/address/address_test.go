package address

import "testing"

func TestAddress_RoundTrip(t *testing.T) {
	var a Address
	for i := range a {
		a[i] = byte(i)
	}

	s := a.String()
	got, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) unexpected error: %v", s, err)
	}
	if got != a {
		t.Errorf("roundtrip mismatch: got %v, want %v", got, a)
	}
}

func TestAddress_ScriptRoundTrip(t *testing.T) {
	var a Address
	for i := range a {
		a[i] = byte(i * 7)
	}

	script := a.ToScript()
	if len(script) != 1+Size {
		t.Fatalf("len(script) = %d, want %d", len(script), 1+Size)
	}
	if script[0] != scriptVersion {
		t.Errorf("script[0] = %x, want %x", script[0], scriptVersion)
	}

	got, err := ScriptToAddress(script)
	if err != nil {
		t.Fatalf("ScriptToAddress unexpected error: %v", err)
	}
	if got != a {
		t.Errorf("roundtrip mismatch: got %v, want %v", got, a)
	}
}

func TestScriptToAddress_RejectsForeignScripts(t *testing.T) {
	tests := []struct {
		name   string
		script []byte
	}{
		{"wrong version byte", append([]byte{0x01}, make([]byte, Size)...)},
		{"too short", []byte{scriptVersion, 0x01, 0x02}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ScriptToAddress(tt.script); err == nil {
				t.Errorf("ScriptToAddress(%x) should have returned an error", tt.script)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"no separator", "notbech32"},
		{"bad checksum", "oxt1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.input); err == nil {
				t.Errorf("Parse(%q) should have returned an error", tt.input)
			}
		})
	}
}

func TestSetHRP(t *testing.T) {
	defer SetHRP(MainnetHRP)

	var a Address
	SetHRP(TestnetHRP)
	s := a.String()
	if len(s) < len(TestnetHRP) || s[:len(TestnetHRP)] != TestnetHRP {
		t.Errorf("String() = %q, want prefix %q", s, TestnetHRP)
	}
}
