package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pw", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pw" {
		t.Fatal("hash must not equal plaintext")
	}
	if !VerifyPassword(hash, "s3cret-pw") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong-pw") {
		t.Fatal("wrong password accepted")
	}
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	for _, digest := range []string{"", "not-a-bcrypt-digest", "$2a$xx$garbage"} {
		if VerifyPassword(digest, "anything") {
			t.Fatalf("malformed digest %q accepted", digest)
		}
	}
}

func TestHashPasswordOutOfRangeCost(t *testing.T) {
	hash, err := HashPassword("pw", 99)
	if err != nil {
		t.Fatalf("HashPassword with out-of-range cost: %v", err)
	}
	if !VerifyPassword(hash, "pw") {
		t.Fatal("digest from clamped cost did not verify")
	}
}
