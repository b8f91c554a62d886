package vehicle

import "testing"

func TestTruckClasses(t *testing.T) {
	classes := TruckClasses()
	if len(classes) != 6 {
		t.Fatalf("expected 6 truck classes, got %d", len(classes))
	}
	for _, code := range classes {
		if !IsTruck(code) {
			t.Errorf("TruckClasses returned %q but IsTruck(%q) = false", code, code)
		}
	}
}

func TestIsTruck(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"11", true},
		{"16", true},
		{"1", false},
		{"4", false},
		{"99", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTruck(tt.code); got != tt.want {
			t.Errorf("IsTruck(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestClassesForKind(t *testing.T) {
	if got := ClassesForKind(KindTruck); len(got) != 6 {
		t.Errorf("truck kind: got %d classes, want 6", len(got))
	}
	if got := ClassesForKind(KindCoach); len(got) != 4 {
		t.Errorf("coach kind: got %d classes, want 4", len(got))
	}
	if got := ClassesForKind(KindAll); got != nil {
		t.Errorf("all kind should return nil filter, got %v", got)
	}
}

func TestRegistryAxles(t *testing.T) {
	for code, class := range Registry {
		if class.Code != code {
			t.Errorf("registry key %q does not match class code %q", code, class.Code)
		}
		if class.ExpectedAxles < 2 {
			t.Errorf("class %q has implausible axle count %d", code, class.ExpectedAxles)
		}
	}
}
