package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	DefaultDifficulty       = 2
	DefaultMaxNonceAttempts = 1_000_000
)

// FindNonce searches nonces from 0 upwards for the first one whose
// sha256(dataHash + nonce) starts with difficulty hex zeros. After
// maxAttempts tries it gives up and returns the last nonce attempted with
// found=false; the nonce is decoration and never gates chain validity.
func FindNonce(dataHash string, difficulty, maxAttempts int) (nonce int64, found bool) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxNonceAttempts
	}
	if difficulty < 0 {
		difficulty = 0
	}
	target := strings.Repeat("0", difficulty)

	for n := int64(0); n < int64(maxAttempts); n++ {
		if strings.HasPrefix(nonceDigest(dataHash, n), target) {
			return n, true
		}
	}
	return int64(maxAttempts) - 1, false
}

// NonceSatisfies reports whether nonce meets difficulty for dataHash.
func NonceSatisfies(dataHash string, nonce int64, difficulty int) bool {
	return strings.HasPrefix(nonceDigest(dataHash, nonce), strings.Repeat("0", difficulty))
}

func nonceDigest(dataHash string, nonce int64) string {
	sum := sha256.Sum256([]byte(dataHash + strconv.FormatInt(nonce, 10)))
	return hex.EncodeToString(sum[:])
}
