package checksum

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	// "<digest>  <name>" or "<digest> *<name>" as written by sha256sum and friends.
	coreutilsLine = regexp.MustCompile(`^([a-fA-F0-9]{32,})\s+([* ]?)(.*)`)
	// "SHA256 (<name>) = <digest>" as written by BSD tools and openssl dgst.
	taggedName = regexp.MustCompile(`\((.*?)\)`)
	hexDigest  = regexp.MustCompile(`^[a-fA-F0-9]{32,}$`)
)

// Parse scans manifest content line by line for the digest of target. Two
// conventions are recognised: coreutils ("<hex> <name>" with an optional '*'
// binary marker, the name matching exactly or as a "/"-separated suffix) and
// BSD tagged ("ALG (<name>) = <hex>"). The first matching line wins.
func Parse(content, target string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := coreutilsLine.FindStringSubmatch(line); m != nil {
			name := m[3]
			if name == target || strings.HasSuffix(name, "/"+target) {
				return m[1], true
			}
			continue
		}

		if digest, ok := parseTagged(line, target); ok {
			return digest, true
		}
	}
	return "", false
}

func parseTagged(line, target string) (string, bool) {
	if !strings.Contains(line, "=") || !strings.Contains(line, "(") || !strings.Contains(line, ")") {
		return "", false
	}
	left, right, _ := strings.Cut(line, "=")
	m := taggedName.FindStringSubmatch(strings.TrimSpace(left))
	if m == nil || m[1] != target {
		return "", false
	}
	digest := strings.TrimSpace(right)
	if !hexDigest.MatchString(digest) {
		return "", false
	}
	return digest, true
}
