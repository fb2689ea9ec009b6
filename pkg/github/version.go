package github

import (
	"strconv"
	"strings"
)

// CompareVersions orders Discourse style versions such as "3.2.1",
// "v3.3.0" and "3.3.0.beta2-dev". Numeric parts compare numerically and a
// pre-release sorts before the matching release. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	an, apre := splitVersion(a)
	bn, bpre := splitVersion(b)

	for i := 0; i < len(an) || i < len(bn); i++ {
		var x, y int
		if i < len(an) {
			x = an[i]
		}
		if i < len(bn) {
			y = bn[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}

	switch {
	case apre == bpre:
		return 0
	case apre == "":
		return 1
	case bpre == "":
		return -1
	}
	return comparePreRelease(strings.Split(apre, "."), strings.Split(bpre, "."))
}

// comparePreRelease orders identifiers such as "beta2" and "beta10" by their
// letter prefix, then numerically by the trailing number. When one list is a
// prefix of the other the longer one is a development build of the shorter
// and sorts first ("beta2-dev" < "beta2").
func comparePreRelease(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) == len(b):
		return 0
	case len(a) > len(b):
		return -1
	default:
		return 1
	}
}

func compareIdentifier(a, b string) int {
	aword, anum, aok := splitIdentifier(a)
	bword, bnum, bok := splitIdentifier(b)
	if c := strings.Compare(aword, bword); c != 0 {
		return c
	}
	switch {
	case aok && bok:
		switch {
		case anum < bnum:
			return -1
		case anum > bnum:
			return 1
		}
		return 0
	case aok != bok:
		// "beta" without a number sorts before "beta1".
		if aok {
			return 1
		}
		return -1
	}
	return 0
}

// splitIdentifier splits "beta10" into "beta" and 10.
func splitIdentifier(id string) (string, int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return id, 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, 0, false
	}
	return id[:i], n, true
}

// IsOutdated reports whether installed is older than latest. Unknown
// versions are never outdated.
func IsOutdated(installed, latest string) bool {
	if strings.TrimSpace(installed) == "" || strings.TrimSpace(latest) == "" {
		return false
	}
	return CompareVersions(installed, latest) < 0
}

func splitVersion(v string) ([]int, string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	var numbers []int
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' || r == '+' })
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return numbers, strings.Join(parts[i:], ".")
		}
		numbers = append(numbers, n)
	}
	return numbers, ""
}
