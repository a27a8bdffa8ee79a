package util

import (
	"testing"
	"time"

	"course_quiz_backend/internal/model"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, model.Teacher, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Role != model.Teacher || claims.IsAdmin() {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := ParseJWT(token, "other"); err == nil {
		t.Error("token accepted with wrong secret")
	}

	expired, err := GenerateJWT(42, model.Student, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(expired, "secret"); err == nil {
		t.Error("expired token accepted")
	}
}
