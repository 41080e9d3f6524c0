package validation

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

func TestRequired(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{"valid string", "name", "test", false},
		{"empty string", "name", "", true},
		{"whitespace only", "name", "   ", true},
		{"tab only", "name", "\t", true},
		{"valid with spaces", "name", " test ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Required(tt.field, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Required() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrRequired) {
				t.Errorf("Required() error should wrap ErrRequired")
			}
		})
	}
}

func TestMaxLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		max     int
		wantErr bool
	}{
		{"under max", "test", 10, false},
		{"at max", "test", 4, false},
		{"over max", "testing", 4, true},
		{"unicode chars", "日本語", 5, false},
		{"unicode over", "日本語テスト", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MaxLength("name", tt.value, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("MaxLength() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrTooLong) {
				t.Errorf("MaxLength() error should wrap ErrTooLong")
			}
		})
	}
}

func TestNetworkName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"simple", "TestName", nil},
		{"with spaces", "home lab", nil},
		{"empty", "", apperrors.ErrEmptyName},
		{"blank", "  \t", apperrors.ErrEmptyName},
		{"too long", strings.Repeat("n", MaxNetworkNameLength+1), ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NetworkName("name", tt.value)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("NetworkName(%q) unexpected error: %v", tt.value, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NetworkName(%q) error = %v, want %v", tt.value, err, tt.wantErr)
			}
		})
	}

	if err := NetworkName("name", ""); !errors.Is(err, ErrRequired) {
		t.Error("empty name should also match ErrRequired")
	}
}

func TestKeyToken(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"access only", "accs", nil},
		{"access and secret", "accs:scrt", nil},
		{"url-safe alphabet", "a-b_c", nil},
		{"undecodable segment left to the decoder", "accs:bad!", nil},
		{"empty", "", ErrRequired},
		{"blank", "  ", ErrRequired},
		{"too long", strings.Repeat("a", MaxTokenLength+1), ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := KeyToken("token", tt.value)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("KeyToken(%q) unexpected error: %v", tt.value, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("KeyToken(%q) error = %v, want %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestAll(t *testing.T) {
	t.Run("all pass", func(t *testing.T) {
		err := All(
			func() error { return nil },
			func() error { return nil },
		)
		if err != nil {
			t.Errorf("All() = %v, want nil", err)
		}
	})

	t.Run("first fails", func(t *testing.T) {
		expectedErr := errors.New("first error")
		err := All(
			func() error { return expectedErr },
			func() error { return nil },
		)
		if err != expectedErr {
			t.Errorf("All() = %v, want %v", err, expectedErr)
		}
	})
}

func TestErrors(t *testing.T) {
	t.Run("empty collection", func(t *testing.T) {
		var errs Errors
		if errs.HasErrors() {
			t.Error("empty Errors should not HasErrors")
		}
		if errs.Error() != "" {
			t.Error("empty Errors.Error() should be empty string")
		}
	})

	t.Run("add nil is ignored", func(t *testing.T) {
		var errs Errors
		errs.Add(nil)
		if errs.HasErrors() {
			t.Error("adding nil should not create error")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		var errs Errors
		errs.Add(NetworkName("name", ""))
		errs.Add(KeyToken("token", ""))

		if len(errs) != 2 {
			t.Errorf("len(errs) = %d, want 2", len(errs))
		}
		if !strings.Contains(errs.Error(), "name") || !strings.Contains(errs.Error(), "token") {
			t.Errorf("Error() should contain both errors: %s", errs.Error())
		}
		if !errors.Is(errs, apperrors.ErrEmptyName) {
			t.Error("Errors should expose its members to errors.Is")
		}
	})
}

func TestResult(t *testing.T) {
	r := NewResult("name", "is required", ErrRequired)
	if r.Error() != "name: is required" {
		t.Errorf("Error() = %q, want %q", r.Error(), "name: is required")
	}
	if !errors.Is(r, ErrRequired) {
		t.Error("should wrap ErrRequired")
	}

	r = NewResult("", "general error", ErrTooLong)
	if r.Error() != "general error" {
		t.Errorf("Error() = %q, want %q", r.Error(), "general error")
	}
}
