package fingerprint

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	a := FingerprintString("Hello World")
	b := FingerprintString("Hello World")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d (%s)", len(a), a)
	}
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	a := FingerprintString("Hello")
	b := FingerprintString("Hello World")
	if a == b {
		t.Fatal("expected different fingerprints for different content")
	}
}

func TestContentHashDeterministicAndShort(t *testing.T) {
	a := ContentHashString("a summary body")
	b := ContentHashString("a summary body")
	if a != b {
		t.Fatalf("content hash not deterministic: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars (8 bytes), got %d", len(a))
	}
}

func TestStalenessScenario(t *testing.T) {
	// Seed scenario 2 from spec.md §8: current content "Hello World",
	// summary recorded against "Hello" — fingerprints must differ.
	current := FingerprintString("Hello World")
	recorded := FingerprintString("Hello")
	if current == recorded {
		t.Fatal("expected staleness scenario fingerprints to differ")
	}
}
