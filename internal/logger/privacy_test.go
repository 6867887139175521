package logger

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testSalt = "test-salt-for-unit-tests-minimum-32-chars"

func TestMain(m *testing.M) {
	InitHashSaltForTesting(testSalt)
	os.Exit(m.Run())
}

// withSalt swaps the package salt for the duration of a test.
func withSalt(t *testing.T, salt string) {
	t.Helper()
	original := hashSalt
	hashSalt = salt
	t.Cleanup(func() { hashSalt = original })
}

func TestHashIDs(t *testing.T) {
	t.Run("stable and short", func(t *testing.T) {
		require.Equal(t, HashUserID(12345), HashUserID(12345))
		require.Len(t, HashUserID(12345), 8)
		require.Len(t, HashChatID(-1001234567890), 8)
	})

	t.Run("users and chats live in separate namespaces", func(t *testing.T) {
		require.NotEqual(t, HashUserID(42), HashChatID(42))
	})

	t.Run("depends on the salt", func(t *testing.T) {
		before := HashChatID(-100500)
		withSalt(t, "another-salt-that-is-also-long-enough!!")
		require.NotEqual(t, before, HashChatID(-100500))
	})

	t.Run("always eight lowercase hex digits", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			id := rapid.Int64().Draw(rt, "id")
			for _, h := range []string{HashUserID(id), HashChatID(id)} {
				if len(h) != 8 || strings.Trim(h, "0123456789abcdef") != "" {
					rt.Fatalf("unexpected hash %q for %d", h, id)
				}
			}
		})
	})

	t.Run("distinct ids rarely collide", func(t *testing.T) {
		seen := make(map[string]int64)
		for id := int64(1); id <= 2000; id++ {
			h := HashUserID(id)
			other, dup := seen[h]
			require.False(t, dup, "ids %d and %d collide", id, other)
			seen[h] = id
		}
	})
}

func TestSanitizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "<empty>"},
		{"Dinner", "<redacted: 1 words, 6 chars>"},
		{"Taxi to Changi airport", "<redacted: 4 words, 22 chars>"},
		{"kopi ☕", "<redacted: 2 words, 6 chars>"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SanitizeDescription(tt.in), tt.in)
	}
}

func TestSanitizeText(t *testing.T) {
	require.Equal(t, "<empty>", SanitizeText(""))
	require.Equal(t, "<2 chars>", SanitizeText("hi"))
	require.Equal(t, "<10 chars>", SanitizeText("0123456789"))
	require.Equal(t, "who...<22 chars>", SanitizeText("who owes me for lunch?"))
	require.Equal(t, "暖暖暖...<12 chars>", SanitizeText("暖暖暖暖暖暖暖暖暖暖暖暖"))
}

func TestInitHashSalt(t *testing.T) {
	for name, salt := range map[string]string{
		"missing":   "",
		"too short": "short-salt",
	} {
		t.Run(name, func(t *testing.T) {
			withSalt(t, hashSalt)
			t.Setenv("LOG_HASH_SALT", salt)
			require.Panics(t, InitHashSalt)
		})
	}

	t.Run("valid salt is installed", func(t *testing.T) {
		withSalt(t, hashSalt)
		salt := strings.Repeat("s", MinHashSaltLength)
		t.Setenv("LOG_HASH_SALT", salt)
		require.NotPanics(t, InitHashSalt)
		require.Equal(t, salt, hashSalt)
	})
}
