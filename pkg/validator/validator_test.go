package validator

import "testing"

type signupPayload struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	MobileNo string `json:"mobile_no" validate:"required,mobile"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := signupPayload{
		Name:     "Asha Verma",
		Email:    "asha@example.com",
		MobileNo: "9876543210",
		Password: "longenough",
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := signupPayload{
		Name:     "",
		Email:    "invalid",
		MobileNo: "12345",
		Password: "short",
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 4 {
		t.Fatalf("expected 4 validation errors, got %d", len(vErrs))
	}

	fields := map[string]bool{}
	for _, v := range vErrs {
		fields[v.Field] = true
	}

	if !fields["mobile_no"] {
		t.Fatal("expected mobile_no to fail the mobile rule")
	}
	if !fields["email"] {
		t.Fatal("expected email to fail")
	}
}

func TestPincodeAllowsEmpty(t *testing.T) {
	type address struct {
		Pincode string `json:"pincode" validate:"pincode"`
	}

	if err := ValidateStruct(address{Pincode: ""}); err != nil {
		t.Fatalf("expected empty pincode to pass, got %v", err)
	}
	if err := ValidateStruct(address{Pincode: "110001"}); err != nil {
		t.Fatalf("expected valid pincode to pass, got %v", err)
	}
	if err := ValidateStruct(address{Pincode: "11-001"}); err == nil {
		t.Fatal("expected malformed pincode to fail")
	}
}
