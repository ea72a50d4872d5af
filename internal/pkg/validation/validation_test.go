package validation

import "testing"

type sample struct {
	Name    string `json:"name"    validate:"notblank"`
	Balance string `json:"balance" validate:"notblank,decimal"`
}

func TestValidate_Decimal(t *testing.T) {
	v := New()

	for _, ok := range []string{"50", "-20", "50.0", " 12.5 ", "1e3"} {
		if err := v.Struct(sample{Name: "Sam", Balance: ok}); err != nil {
			t.Fatalf("balance %q should be valid: %v", ok, err)
		}
	}

	for _, bad := range []string{"abc", "NaN", "Inf", "12,5"} {
		err := v.Struct(sample{Name: "Sam", Balance: bad})
		msgs := FieldMessages(err)
		if msgs["balance"] != "balance must be a number" {
			t.Fatalf("balance %q: unexpected messages %v", bad, msgs)
		}
	}
}

func TestValidate_NotBlank(t *testing.T) {
	v := New()

	msgs := FieldMessages(v.Struct(sample{Name: "   ", Balance: ""}))
	if msgs["name"] != "name is required" {
		t.Fatalf("unexpected name message: %v", msgs)
	}
	if msgs["balance"] != "balance is required" {
		t.Fatalf("unexpected balance message: %v", msgs)
	}
}

func TestFieldMessages_NonValidationError(t *testing.T) {
	if FieldMessages(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
