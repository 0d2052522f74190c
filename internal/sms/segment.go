package sms

// Segment accounting for outbound SMS. A message that fits the GSM 03.38
// 7-bit repertoire bills at 160 units per single segment (153 per segment
// once concatenated); anything else falls back to UCS-2 at 70/67. Extended
// GSM characters cost two units (they are sent as an escape pair).

const (
	EncodingGSM7 = "gsm-7"
	EncodingUCS2 = "ucs-2"

	GSM7SingleSegment = 160
	GSM7MultiSegment  = 153
	UCS2SingleSegment = 70
	UCS2MultiSegment  = 67
)

// gsm7Basic is the GSM 03.38 basic character set (1 unit each).
var gsm7Basic = func() map[rune]bool {
	const chars = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
		"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑܧ¿abcdefghijklmnopqrstuvwxyzäöñüà"
	set := make(map[rune]bool, len(chars))
	for _, r := range chars {
		set[r] = true
	}
	// ESC itself is not addressable, but SP variants map into the basic set.
	set[' '] = true
	return set
}()

// gsm7Extended is the escape-prefixed extension table (2 units each).
var gsm7Extended = map[rune]bool{
	'^': true, '{': true, '}': true, '\\': true,
	'[': true, ']': true, '~': true, '|': true, '€': true,
	'\f': true,
}

// Encoded is the result of classifying a message body. Identical input
// always yields the identical result; there is no hidden state.
type Encoded struct {
	Encoding string `json:"encoding"`
	Units    int    `json:"units"`
	Segments int    `json:"segments"`
}

// Analyze classifies text as GSM-7 or UCS-2, computes its effective length
// in character units, and derives the billable segment count.
func Analyze(text string) Encoded {
	if isGSM7(text) {
		units := gsm7Units(text)
		return Encoded{
			Encoding: EncodingGSM7,
			Units:    units,
			Segments: segments(units, GSM7SingleSegment, GSM7MultiSegment),
		}
	}

	units := 0
	for range text {
		units++
	}
	return Encoded{
		Encoding: EncodingUCS2,
		Units:    units,
		Segments: segments(units, UCS2SingleSegment, UCS2MultiSegment),
	}
}

// Segments is a convenience wrapper around Analyze.
func Segments(text string) int {
	return Analyze(text).Segments
}

func isGSM7(text string) bool {
	for _, r := range text {
		if !gsm7Basic[r] && !gsm7Extended[r] {
			return false
		}
	}
	return true
}

func gsm7Units(text string) int {
	units := 0
	for _, r := range text {
		if gsm7Extended[r] {
			units += 2
		} else {
			units++
		}
	}
	return units
}

func segments(units, single, multi int) int {
	if units == 0 {
		return 1
	}
	if units <= single {
		return 1
	}
	return (units + multi - 1) / multi
}

const ellipsis = "..."

// Truncate cuts text so that its effective length fits maxUnits, appending
// an ellipsis inside the budget. Cuts happen on character-unit boundaries:
// an extended character that would straddle the limit is dropped whole, and
// UCS-2 text is cut per rune, never mid-rune.
func Truncate(text string, maxUnits int) string {
	enc := Analyze(text)
	if enc.Units <= maxUnits {
		return text
	}
	if maxUnits <= len(ellipsis) {
		return cutUnits(text, maxUnits, enc.Encoding)
	}
	return cutUnits(text, maxUnits-len(ellipsis), enc.Encoding) + ellipsis
}

// TruncateStrict enforces a single-segment ceiling lowered by reserve
// character units, leaving room for a footer appended elsewhere. The
// ceiling depends on the text's own encoding classification.
func TruncateStrict(text string, reserve int) string {
	limit := GSM7SingleSegment
	if Analyze(text).Encoding == EncodingUCS2 {
		limit = UCS2SingleSegment
	}
	limit -= reserve
	if limit < 0 {
		limit = 0
	}
	return Truncate(text, limit)
}

func cutUnits(text string, maxUnits int, encoding string) string {
	// Walk runes, accumulating units under the target encoding, and cut at
	// the last boundary that still fits.
	units := 0
	for i, r := range text {
		cost := 1
		if encoding == EncodingGSM7 && gsm7Extended[r] {
			cost = 2
		}
		if units+cost > maxUnits {
			return text[:i]
		}
		units += cost
	}
	return text
}
