package tournament

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	PayloadPrefix = "ref_"
	tokenLength   = 12
)

var (
	tokenEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)
	tokenRE       = regexp.MustCompile(`^[a-z2-7]{12}$`)
)

// DeriveToken maps a participant identifier to its referral token. The same
// secret and identifier always yield the same token.
func DeriveToken(secret []byte, id string) string {
	if len(secret) > 64 {
		sum := blake2b.Sum256(secret)
		secret = sum[:]
	}
	h, err := blake2b.New256(secret)
	if err != nil {
		// only reachable with an oversized key, which is folded above
		panic(err)
	}
	h.Write([]byte(id))
	return tokenEncoding.EncodeToString(h.Sum(nil))[:tokenLength]
}

// Payload is the start argument that carries a referral token.
func Payload(token string) string {
	return PayloadPrefix + token
}

// ParsePayload extracts the referral token from a start argument. Anything that
// is not a well-formed payload reports false.
func ParsePayload(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, PayloadPrefix) {
		return "", false
	}
	token := strings.ToLower(strings.TrimPrefix(payload, PayloadPrefix))
	if !tokenRE.MatchString(token) {
		return "", false
	}
	return token, true
}
