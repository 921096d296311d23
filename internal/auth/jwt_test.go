package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(GenerateSecureSecret(), "fractal-terrain", time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания менеджера: %v", err)
	}
	return m
}

// TestGenerate тестирует создание JWT токена
func TestGenerate(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Generate("editor", false)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	// Проверяем, что токен содержит точки (разделители частей JWT)
	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}
}

// TestValidate тестирует валидацию JWT токена
func TestValidate(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Generate("admin", true)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Валидный токен определен как недействительный: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("Неверный subject: %s", claims.Subject)
	}
	if !claims.IsAdmin {
		t.Error("Потерян флаг администратора")
	}
}

// TestValidateInvalid тестирует валидацию недействительных JWT
func TestValidateInvalid(t *testing.T) {
	m := newTestManager(t)

	testCases := []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, invalidToken := range testCases {
		if _, err := m.Validate(invalidToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Недействительный токен %q принят: %v", invalidToken, err)
		}
	}
}

func TestValidateForeignSecret(t *testing.T) {
	a := newTestManager(t)
	b := newTestManager(t)

	token, err := a.Generate("editor", true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Validate(token); err == nil {
		t.Error("Токен с чужим ключом принят")
	}
}

func TestValidateExpired(t *testing.T) {
	m := newTestManager(t)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }

	token, err := m.Generate("editor", false)
	if err != nil {
		t.Fatal(err)
	}

	m.now = time.Now
	if _, err := m.Validate(token); err == nil {
		t.Error("Просроченный токен принят")
	}
}

func TestNewManagerSecret(t *testing.T) {
	if _, err := NewManager("c2hvcnQ=", "", 0); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("Короткий ключ принят: %v", err)
	}
	if _, err := NewManager("%%%", "", 0); err == nil {
		t.Error("Некорректный base64 принят")
	}
	if _, err := NewManager("", "", 0); err != nil {
		t.Errorf("Пустой ключ должен генерироваться: %v", err)
	}
}
