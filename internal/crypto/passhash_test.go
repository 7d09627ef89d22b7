package crypto

import "testing"

func TestHashVerifyPassword(t *testing.T) {
	t.Parallel()

	salt, err := RandBytes(16)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	h := HashPassword([]byte("secret"), salt)
	if len(h) == 0 {
		t.Fatalf("empty hash")
	}
	if !VerifyPassword([]byte("secret"), salt, h) {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword([]byte("wrong"), salt, h) {
		t.Fatalf("wrong password accepted")
	}

	otherSalt, _ := RandBytes(16)
	if VerifyPassword([]byte("secret"), otherSalt, h) {
		t.Fatalf("verification with wrong salt accepted")
	}
}

func TestRandomPassword(t *testing.T) {
	t.Parallel()

	a, err := RandomPassword()
	if err != nil {
		t.Fatalf("RandomPassword: %v", err)
	}
	b, err := RandomPassword()
	if err != nil {
		t.Fatalf("RandomPassword: %v", err)
	}
	if a == "" || a == b {
		t.Fatalf("random passwords not unique: %q %q", a, b)
	}
}
