package location

import "testing"

func TestFilterAllowed(t *testing.T) {
	f, err := NewFilter(true, []string{"Israel"}, nil)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	tests := []struct {
		location string
		want     bool
	}{
		{"Tel Aviv, Israel", true},
		{"Tel-Aviv", true},
		{"Herzliya", true},
		{"Ramat Gan, IL", true},
		{"Petah Tikva", true},
		{"Be'er Sheva", true},
		{"New York, NY", false},
		{"London, UK", false},
		// "il" must not match inside a word
		{"Chicago, Illinois", false},
		{"Wilmington", false},
		// fail closed on missing location
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := f.Allowed(tt.location); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.location, got, tt.want)
		}
	}
}

func TestFilterDisabledAllowsEverything(t *testing.T) {
	f, err := NewFilter(false, nil, nil)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	for _, loc := range []string{"", "Anywhere", "New York"} {
		if !f.Allowed(loc) {
			t.Errorf("disabled filter rejected %q", loc)
		}
	}
}

func TestFilterCustomKeywords(t *testing.T) {
	f, err := NewFilter(true, nil, []string{"Remote"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.Allowed("Remote - EMEA") {
		t.Error("keyword pattern should match")
	}
	if f.Allowed("Remoteville") {
		t.Error("keyword pattern should respect word boundaries")
	}
}

func TestFilterEnabledWithoutPatterns(t *testing.T) {
	if _, err := NewFilter(true, nil, nil); err == nil {
		t.Fatal("expected error when enabled with no patterns")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tel aviv", "Tel Aviv, Israel"},
		{"Tel-Aviv", "Tel Aviv, Israel"},
		{"Tel Aviv-Yafo, Israel", "Tel Aviv, Israel"},
		{"Herzelia", "Herzliya, Israel"},
		{"Israel - Ramat Gan", "Ramat Gan, Israel"},
		{"Petach Tikva", "Petah Tikva, Israel"},
		{"Israel", "Israel"},
		{"  Haifa  ", "Haifa, Israel"},
		{"New York, NY", "New York, NY"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalCity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tel Aviv, Israel", "Tel Aviv"},
		{"tel-aviv", "Tel Aviv"},
		{"Hybrid, Herzliya Pituach", "Herzliya"},
		{"New York", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalCity(tt.in); got != tt.want {
			t.Errorf("CanonicalCity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
