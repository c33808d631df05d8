package tokenizer

import "testing"

func TestTokenizeBasic(t *testing.T) {
	got := Tokenize("Python is a language. Python is great.")
	want := []string{"python", "language", "python", "great"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %q want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestTokenizeDropsShortAndStopWords(t *testing.T) {
	got := Tokenize("to be or not to be, an x")
	if len(got) != 0 {
		t.Fatalf("expected all tokens filtered, got %v", got)
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog."
	a := Tokenize(text)
	b := Tokenize(text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic token counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic token at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestIsStopWord(t *testing.T) {
	if !IsStopWord("The") {
		t.Fatal("expected 'The' to be a stop word")
	}
	if IsStopWord("python") {
		t.Fatal("did not expect 'python' to be a stop word")
	}
}
