package condition

import "strings"

// CompareVersions orders two version strings, returning a negative
// number, zero or a positive number as a sorts before, equal to or
// after b.
//
// Versions are split into runs of digits and runs of letters; other
// characters only separate. Digit runs compare numerically and letter
// runs case-insensitively. When one version runs out of segments the
// other's remaining digit runs count as zero ("1.0" equals "1.0.0"),
// a remaining letter run counts as later ("1.0a" is after "1.0"), and
// where a digit run meets a letter run the letter run is earlier
// ("1.0.rc1" is before "1.0.1").
func CompareVersions(a, b string) int {
	as := splitVersion(stripLeadingV(a))
	bs := splitVersion(stripLeadingV(b))
	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb segment
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		if c := sa.compare(sb); c != 0 {
			return c
		}
	}
	return 0
}

// segment is one run of a version string. The zero segment is the
// implicit "0" appended when a version is shorter than its peer.
type segment struct {
	text    string
	numeric bool
	present bool
}

func (s segment) compare(o segment) int {
	switch {
	case !s.present && !o.present:
		return 0
	case !s.present:
		if !o.numeric {
			// "1.0" sorts before "1.0a".
			return -1
		}
		return zeroSegment().compare(o)
	case !o.present:
		if !s.numeric {
			return 1
		}
		return s.compare(zeroSegment())
	case s.numeric && o.numeric:
		return compareNumeric(s.text, o.text)
	case s.numeric != o.numeric:
		// Letters sort before numbers, so "rc" < "1".
		if s.numeric {
			return 1
		}
		return -1
	default:
		return strings.Compare(strings.ToLower(s.text), strings.ToLower(o.text))
	}
}

func zeroSegment() segment {
	return segment{text: "0", numeric: true, present: true}
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func splitVersion(v string) []segment {
	var segs []segment
	i := 0
	for i < len(v) {
		c := v[i]
		switch {
		case c >= '0' && c <= '9':
			j := i
			for j < len(v) && v[j] >= '0' && v[j] <= '9' {
				j++
			}
			segs = append(segs, segment{text: v[i:j], numeric: true, present: true})
			i = j
		case isLetter(c):
			j := i
			for j < len(v) && isLetter(v[j]) {
				j++
			}
			segs = append(segs, segment{text: v[i:j], present: true})
			i = j
		default:
			i++
		}
	}
	return segs
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// stripLeadingV drops the conventional v prefix from versions like
// "v1.2" so they compare equal to their bare form.
func stripLeadingV(v string) string {
	if len(v) >= 2 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}
