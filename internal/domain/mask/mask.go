package mask

import "strings"

// Format limits.
const (
	NationalIDDigits    = 11
	NationalIDMaxLength = len("###.###.###-##")
	PhoneDigits         = 11
	PhoneMaxLength      = len("(##) #####-####")
)

// Kind names a mask so field configuration can refer to it declaratively.
type Kind string

const (
	KindNone       Kind = ""
	KindNationalID Kind = "cpf"
	KindPhone      Kind = "phone"
)

// ParseKind maps a configuration string to a Kind.
// Unknown names map to KindNone (no masking) with ok=false.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindNationalID:
		return KindNationalID, true
	case KindPhone:
		return KindPhone, true
	case KindNone:
		return KindNone, true
	}
	return KindNone, false
}

// Apply runs the mask for kind over raw. KindNone returns raw unchanged.
func Apply(kind Kind, raw string) string {
	switch kind {
	case KindNationalID:
		return NationalID(raw)
	case KindPhone:
		return Phone(raw)
	}
	return raw
}

// Strip is the submission-time reverse of Apply.
// KindNone returns the value unchanged.
func Strip(kind Kind, masked string) string {
	if kind == KindNone {
		return masked
	}
	return Digits(masked)
}

// Digits removes every character that is not an ASCII digit.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NationalID formats raw as ###.###.###-## for however many digits are present.
// INVARIANT: at most 11 digits, at most 14 characters, idempotent.
func NationalID(raw string) string {
	d := limit(Digits(raw), NationalIDDigits)

	var b strings.Builder
	b.Grow(NationalIDMaxLength)
	for i := 0; i < len(d); i++ {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteByte(d[i])
	}
	return truncate(b.String(), NationalIDMaxLength)
}

// Phone formats raw as (AA) NNNN-NNNN or (AA) NNNNN-NNNN.
// The hyphen position is chosen from the total digit count in a single pass:
// after the 5th subscriber digit when an 11th digit exists, after the 4th otherwise.
// The area code is wrapped once a third digit is typed.
// INVARIANT: at most 11 digits, at most 15 characters, idempotent.
func Phone(raw string) string {
	d := limit(Digits(raw), PhoneDigits)
	if len(d) <= 2 {
		return d
	}

	area, number := d[:2], d[2:]
	split := 4
	if len(d) == PhoneDigits {
		split = 5
	}

	var b strings.Builder
	b.Grow(PhoneMaxLength)
	b.WriteByte('(')
	b.WriteString(area)
	b.WriteString(") ")
	if len(number) > split {
		b.WriteString(number[:split])
		b.WriteByte('-')
		b.WriteString(number[split:])
	} else {
		b.WriteString(number)
	}
	return truncate(b.String(), PhoneMaxLength)
}

func limit(digits string, n int) string {
	if len(digits) > n {
		return digits[:n]
	}
	return digits
}

// truncate is byte based; masked output is ASCII only.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
