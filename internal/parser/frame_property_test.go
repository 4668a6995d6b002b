package parser

import (
	"bytes"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

// splitAt cuts data into chunks at the given ascending offsets.
func splitAt(data []byte, cuts []int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, c := range cuts {
		if c <= prev || c >= len(data) {
			continue
		}
		chunks = append(chunks, data[prev:c])
		prev = c
	}
	return append(chunks, data[prev:])
}

// streamGen builds byte streams of short records drawn from a small alphabet
// rich in delimiters and whitespace.
func streamGen() *rapid.Generator[[]byte] {
	return rapid.Custom(func(t *rapid.T) []byte {
		alphabet := []byte("ab{}\":,1.\n\r \t")
		n := rapid.IntRange(0, 300).Draw(t, "len")
		out := make([]byte, n)
		for i := range out {
			out[i] = rapid.SampledFrom(alphabet).Draw(t, "byte")
		}
		return out
	})
}

// TestPropertyFramingIsChunkInvariant verifies the emitted records depend only
// on the byte stream, never on how it was chunked.
func TestPropertyFramingIsChunkInvariant(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		data := streamGen().Draw(t, "data")
		cuts := rapid.SliceOfN(rapid.IntRange(0, 300), 0, 20).Draw(t, "cuts")
		slices.Sort(cuts)

		whole := NewSplitter()
		want := frameStrings(whole.Feed(data))

		chunked := NewSplitter()
		var got []string
		for _, c := range splitAt(data, cuts) {
			got = append(got, frameStrings(chunked.Feed(c))...)
		}

		if len(got) != len(want) {
			t.Fatalf("record count differs: whole=%d chunked=%d", len(want), len(got))
		}
		for i := range want {
			if want[i] != got[i] {
				t.Fatalf("record %d differs: %q vs %q", i, want[i], got[i])
			}
		}
		if whole.Pending() != chunked.Pending() {
			t.Fatalf("residue differs: %d vs %d", whole.Pending(), chunked.Pending())
		}
	})
}

// TestPropertyFramingPreservesPayload verifies records are exactly the
// non-empty trimmed segments between delimiters.
func TestPropertyFramingPreservesPayload(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		data := streamGen().Draw(t, "data")

		s := NewSplitter()
		got := frameStrings(s.Feed(data))

		segments := bytes.Split(data, []byte{Delimiter})
		var want []string
		for _, seg := range segments[:len(segments)-1] {
			if rec := bytes.Trim(seg, trimSet); len(rec) > 0 {
				want = append(want, string(rec))
			}
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i := range want {
			if want[i] != got[i] {
				t.Fatalf("record %d: want %q got %q", i, want[i], got[i])
			}
		}
		if s.Pending() != len(segments[len(segments)-1]) {
			t.Fatalf("residue: want %d got %d", len(segments[len(segments)-1]), s.Pending())
		}
	})
}
