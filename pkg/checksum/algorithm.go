package checksum

import "strings"

// Algorithm names a digest algorithm as reported in results.
type Algorithm string

const (
	AlgorithmUnknown Algorithm = ""
	SHA512           Algorithm = "SHA512"
	SHA384           Algorithm = "SHA384"
	SHA256           Algorithm = "SHA256"
	SHA224           Algorithm = "SHA224"
	SHA1             Algorithm = "SHA1"
	MD5              Algorithm = "MD5"
)

// hintOrder is checked in sequence; the first token found in the hint wins.
var hintOrder = []struct {
	token string
	alg   Algorithm
}{
	{"sha512", SHA512},
	{"sha256", SHA256},
	{"sha1", SHA1},
	{"md5", MD5},
}

var lengthToAlgorithm = map[int]Algorithm{
	128: SHA512,
	96:  SHA384,
	64:  SHA256,
	56:  SHA224,
	40:  SHA1,
	32:  MD5,
}

// InferAlgorithm determines the algorithm of digest. The hint (a manifest
// filename or glob) wins when it names an algorithm; otherwise the hex length
// of the digest decides. AlgorithmUnknown is returned when neither does.
func InferAlgorithm(hint, digest string) Algorithm {
	if hint != "" {
		lower := strings.ToLower(hint)
		for _, h := range hintOrder {
			if strings.Contains(lower, h.token) {
				return h.alg
			}
		}
	}
	if d := strings.TrimSpace(digest); d != "" {
		if alg, ok := lengthToAlgorithm[len(d)]; ok {
			return alg
		}
	}
	return AlgorithmUnknown
}
