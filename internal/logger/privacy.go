package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// MinHashSaltLength is the shortest LOG_HASH_SALT accepted.
const MinHashSaltLength = 32

var hashSalt string

// InitHashSalt loads LOG_HASH_SALT. It panics when the salt is missing or
// shorter than MinHashSaltLength, since weak salts make ids recoverable.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if salt == "" {
		panic("LOG_HASH_SALT is required")
	}
	if len(salt) < MinHashSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", MinHashSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets a fixed salt.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// hashID hashes id within a namespace so that a user and a chat sharing a
// numeric id never log the same value.
func hashID(namespace string, id int64) string {
	data := fmt.Sprintf("%s:%d:%s", namespace, id, hashSalt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows tracking user actions without exposing actual user IDs.
func HashUserID(userID int64) string {
	return hashID("user", userID)
}

// HashChatID creates a privacy-preserving hash of a group chat ID.
func HashChatID(chatID int64) string {
	return hashID("chat", chatID)
}

// SanitizeDescription redacts an expense description but keeps its size.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(desc)), len([]rune(desc)))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	r := []rune(text)
	if len(r) <= 10 {
		return fmt.Sprintf("<%d chars>", len(r))
	}
	return fmt.Sprintf("%s...<%d chars>", string(r[:3]), len(r))
}
