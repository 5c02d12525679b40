package core

import (
	"errors"
	"testing"
)

func validRegistration() NewRegistration {
	return NewRegistration{
		FullName:     "Jo",
		MobileNumber: "9123456789",
		RoomNumber:   "A-12",
		GroupName:    "Pavitra",
		Interests:    []string{"Sketching"},
		Software:     []string{"Canva"},
	}
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name      string
		step      Step
		mutate    func(*NewRegistration)
		wantField string
		wantMsg   string
	}{
		{"valid name", StepName, func(*NewRegistration) {}, "", ""},
		{"empty name", StepName, func(r *NewRegistration) { r.FullName = "" }, "fullName", "Please enter your full name"},
		{"short name", StepName, func(r *NewRegistration) { r.FullName = "J" }, "fullName", "Name must be at least 2 characters"},
		{"digit in name", StepName, func(r *NewRegistration) { r.FullName = "Jo3" }, "fullName", "Name can only contain letters and spaces"},
		{"name with space", StepName, func(r *NewRegistration) { r.FullName = "Asha Verma" }, "", ""},
		{"tab in name", StepName, func(r *NewRegistration) { r.FullName = "Jo\tDoe" }, "fullName", "Name can only contain letters and spaces"},
		{"newline in name", StepName, func(r *NewRegistration) { r.FullName = "Jo\nDoe" }, "fullName", "Name can only contain letters and spaces"},

		{"valid mobile", StepMobile, func(*NewRegistration) {}, "", ""},
		{"empty mobile", StepMobile, func(r *NewRegistration) { r.MobileNumber = "" }, "mobileNumber", "Please enter your mobile number"},
		{"leading 5", StepMobile, func(r *NewRegistration) { r.MobileNumber = "5123456789" }, "mobileNumber", "Please enter a valid 10-digit mobile number starting with 6-9"},
		{"nine digits", StepMobile, func(r *NewRegistration) { r.MobileNumber = "912345678" }, "mobileNumber", "Please enter a valid 10-digit mobile number starting with 6-9"},
		{"eleven digits", StepMobile, func(r *NewRegistration) { r.MobileNumber = "91234567890" }, "mobileNumber", "Please enter a valid 10-digit mobile number starting with 6-9"},
		{"letters in mobile", StepMobile, func(r *NewRegistration) { r.MobileNumber = "91234a6789" }, "mobileNumber", "Please enter a valid 10-digit mobile number starting with 6-9"},

		{"valid room", StepRoom, func(*NewRegistration) {}, "", ""},
		{"empty room", StepRoom, func(r *NewRegistration) { r.RoomNumber = "" }, "roomNumber", "Please enter your room number"},
		{"room with slash", StepRoom, func(r *NewRegistration) { r.RoomNumber = "A/12" }, "roomNumber", "Room number can only contain letters, numbers and hyphens"},

		{"valid group", StepGroup, func(*NewRegistration) {}, "", ""},
		{"empty group", StepGroup, func(r *NewRegistration) { r.GroupName = "" }, "groupName", "Please select your group"},
		{"unknown group", StepGroup, func(r *NewRegistration) { r.GroupName = "Prakash" }, "groupName", "Please select a valid group"},

		{"valid selections", StepSelections, func(*NewRegistration) {}, "", ""},
		{"custom interest only", StepSelections, func(r *NewRegistration) { r.Interests = nil; r.CustomInterest = "Pottery" }, "", ""},
		{"no interests", StepSelections, func(r *NewRegistration) { r.Interests = nil }, "interests", "Please select at least one creative interest"},
		{"blank custom interest", StepSelections, func(r *NewRegistration) { r.Interests = nil; r.CustomInterest = "   " }, "interests", "Please select at least one creative interest"},
		{"no software", StepSelections, func(r *NewRegistration) { r.Software = []string{" "} }, "software", "Please select at least one software/application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.mutate(&reg)

			errs := ValidateStep(tt.step, Normalize(reg))
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("ValidateStep() = %v, want no errors", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("ValidateStep() = nil, want %s error", tt.wantField)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
			if errs[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateStep_UnnormalizedInput(t *testing.T) {
	reg := validRegistration()
	reg.Interests = []string{}
	reg.Software = []string{"  "}

	errs := ValidateStep(StepSelections, reg)
	if len(errs) != 2 {
		t.Fatalf("ValidateStep() = %v, want interests and software errors", errs)
	}
	if errs[0].Field != "interests" || errs[1].Field != "software" {
		t.Errorf("fields = %q, %q, want interests, software", errs[0].Field, errs[1].Field)
	}

	reg = validRegistration()
	reg.FullName = "  Jo  "
	if errs := ValidateStep(StepName, reg); len(errs) != 0 {
		t.Errorf("ValidateStep(padded name) = %v, want no errors", errs)
	}
}

func TestValidateRegistration(t *testing.T) {
	if err := ValidateRegistration(validRegistration()); err != nil {
		t.Fatalf("ValidateRegistration(valid) = %v", err)
	}

	reg := validRegistration()
	reg.FullName = "Jo3"
	reg.MobileNumber = "5123456789"

	err := ValidateRegistration(reg)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("ValidateRegistration() = %v, want ValidationError", err)
	}
	if ve.Field != "fullName" {
		t.Errorf("first failure Field = %q, want fullName", ve.Field)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(NewRegistration{
		FullName:       "  Asha Verma ",
		MobileNumber:   " 9123456789",
		Interests:      []string{" Sketching", "", "Sketching", "Designing "},
		CustomSoftware: "  Blender ",
	})

	if got.FullName != "Asha Verma" {
		t.Errorf("FullName = %q", got.FullName)
	}
	if got.MobileNumber != "9123456789" {
		t.Errorf("MobileNumber = %q", got.MobileNumber)
	}
	want := []string{"Sketching", "Designing"}
	if len(got.Interests) != len(want) {
		t.Fatalf("Interests = %v, want %v", got.Interests, want)
	}
	for i := range want {
		if got.Interests[i] != want[i] {
			t.Errorf("Interests[%d] = %q, want %q", i, got.Interests[i], want[i])
		}
	}
	if got.Software != nil {
		t.Errorf("Software = %#v, want nil", got.Software)
	}
	if got.CustomSoftware != "Blender" {
		t.Errorf("CustomSoftware = %q", got.CustomSoftware)
	}
}

func TestValidMobileFormat(t *testing.T) {
	tests := map[string]bool{
		"9123456789": true,
		"6000000000": true,
		"5123456789": false,
		"0123456789": false,
		"":           false,
		"+919123456": false,
	}
	for in, want := range tests {
		if got := ValidMobileFormat(in); got != want {
			t.Errorf("ValidMobileFormat(%q) = %v, want %v", in, got, want)
		}
	}
}
