package sms

import (
	"strings"
	"testing"
)

func TestAnalyze_SingleSegmentBoundary(t *testing.T) {
	body := strings.Repeat("a", 160)

	enc := Analyze(body)
	if enc.Encoding != EncodingGSM7 {
		t.Fatalf("expected encoding %q, got %q", EncodingGSM7, enc.Encoding)
	}
	if enc.Units != 160 {
		t.Fatalf("expected 160 units, got %d", enc.Units)
	}
	if enc.Segments != 1 {
		t.Fatalf("expected 1 segment at 160 units, got %d", enc.Segments)
	}
}

func TestAnalyze_161UnitsIsTwoSegments(t *testing.T) {
	body := strings.Repeat("a", 161)

	enc := Analyze(body)
	if enc.Segments != 2 {
		t.Fatalf("expected 2 segments at 161 units, got %d", enc.Segments)
	}
}

func TestAnalyze_MultiSegmentCapacityIs153(t *testing.T) {
	// 306 units = exactly two concatenated segments; 307 spills into a third.
	if got := Segments(strings.Repeat("a", 306)); got != 2 {
		t.Fatalf("expected 2 segments at 306 units, got %d", got)
	}
	if got := Segments(strings.Repeat("a", 307)); got != 3 {
		t.Fatalf("expected 3 segments at 307 units, got %d", got)
	}
}

func TestAnalyze_ExtendedCharsCostTwoUnits(t *testing.T) {
	// 158 basic + one euro sign (2 units) = 160 units, still one segment.
	body := strings.Repeat("a", 158) + "€"

	enc := Analyze(body)
	if enc.Encoding != EncodingGSM7 {
		t.Fatalf("expected %q, got %q", EncodingGSM7, enc.Encoding)
	}
	if enc.Units != 160 {
		t.Fatalf("expected 160 units, got %d", enc.Units)
	}
	if enc.Segments != 1 {
		t.Fatalf("expected 1 segment, got %d", enc.Segments)
	}

	// One more basic char tips it over.
	enc = Analyze(body + "a")
	if enc.Segments != 2 {
		t.Fatalf("expected 2 segments at 161 units, got %d", enc.Segments)
	}
}

func TestAnalyze_SingleForeignCharForcesUCS2(t *testing.T) {
	body := strings.Repeat("a", 69) + "あ"

	enc := Analyze(body)
	if enc.Encoding != EncodingUCS2 {
		t.Fatalf("expected %q, got %q", EncodingUCS2, enc.Encoding)
	}
	if enc.Units != 70 {
		t.Fatalf("expected 70 units, got %d", enc.Units)
	}
	if enc.Segments != 1 {
		t.Fatalf("expected 1 segment at 70 UCS-2 units, got %d", enc.Segments)
	}

	if got := Segments(body + "a"); got != 2 {
		t.Fatalf("expected 2 segments at 71 UCS-2 units, got %d", got)
	}
}

func TestAnalyze_EmptyTextIsOneSegment(t *testing.T) {
	if got := Segments(""); got != 1 {
		t.Fatalf("expected 1 segment for empty text, got %d", got)
	}
}

func TestSegments_MonotonicInLength(t *testing.T) {
	prev := 0
	for n := 1; n <= 500; n += 7 {
		got := Segments(strings.Repeat("x", n))
		if got < prev {
			t.Fatalf("segment count decreased from %d to %d at length %d", prev, got, n)
		}
		if got < 1 {
			t.Fatalf("segment count %d < 1 at length %d", got, n)
		}
		prev = got
	}
}

func TestTruncate_CutsOnUnitBoundary(t *testing.T) {
	body := strings.Repeat("a", 200)

	got := Truncate(body, 20)
	if got != strings.Repeat("a", 17)+"..." {
		t.Fatalf("unexpected truncation result %q", got)
	}
	if Analyze(got).Units != 20 {
		t.Fatalf("expected truncated text to be exactly 20 units, got %d", Analyze(got).Units)
	}
}

func TestTruncate_DoesNotSplitExtendedChar(t *testing.T) {
	// 16 basic chars then a euro sign: a 20-unit budget leaves 17 units for
	// content after the ellipsis, so the 2-unit euro at position 17-18 must
	// be dropped whole.
	body := strings.Repeat("a", 16) + "€" + strings.Repeat("b", 100)

	got := Truncate(body, 20)
	if strings.Contains(strings.TrimSuffix(got, "..."), "€") {
		t.Fatalf("expected euro sign to be dropped, got %q", got)
	}
	if units := Analyze(got).Units; units > 20 {
		t.Fatalf("truncated text exceeds budget: %d units", units)
	}
}

func TestTruncate_ShortTextUnchanged(t *testing.T) {
	body := "short"
	if got := Truncate(body, 160); got != body {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

func TestTruncateStrict_ReservesFooterRoom(t *testing.T) {
	body := strings.Repeat("a", 200)

	got := TruncateStrict(body, 24)
	if units := Analyze(got).Units; units > GSM7SingleSegment-24 {
		t.Fatalf("expected at most %d units, got %d", GSM7SingleSegment-24, units)
	}
}

func TestTruncateStrict_UCS2UsesLowerCeiling(t *testing.T) {
	body := strings.Repeat("あ", 100)

	got := TruncateStrict(body, 10)
	if units := Analyze(got).Units; units > UCS2SingleSegment-10 {
		t.Fatalf("expected at most %d units, got %d", UCS2SingleSegment-10, units)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	body := "Hej då £5 {offer} ümlaut"
	first := Analyze(body)
	for i := 0; i < 10; i++ {
		if got := Analyze(body); got != first {
			t.Fatalf("Analyze is not deterministic: %+v vs %+v", got, first)
		}
	}
}
