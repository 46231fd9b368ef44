package docstore

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(map[string]any{"model": "A4", "price": int64(27500)})
	b := Fingerprint(map[string]any{"price": int64(27500), "model": "A4"})
	if a != b {
		t.Errorf("fingerprints differ for equal payloads: %q vs %q", a, b)
	}
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a := Fingerprint(map[string]any{"price": int64(100)})
	b := Fingerprint(map[string]any{"price": int64(200)})
	if a == b {
		t.Error("fingerprints equal for different payloads")
	}
}

func TestFingerprint_IsQuoted(t *testing.T) {
	got := Fingerprint([]string{"x"})
	if len(got) < 3 || got[0] != '"' || got[len(got)-1] != '"' {
		t.Errorf("Fingerprint = %q, want quoted ETag", got)
	}
}
