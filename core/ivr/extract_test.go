package ivr

import "testing"

func TestExtractOrderID(t *testing.T) {
	tests := []struct {
		transcript string
		expected   string
		ok         bool
	}{
		{"my order is #482910", "482910", true},
		{"order 1234567", "1234567", true},
		{"Order number is 482910 thanks", "482910", true},
		{"482910", "482910", true},
		{"# 482910", "482910", true},
		{"আমার অর্ডার নম্বর ৪৮২৯১০", "482910", true},
		{"order 12345 and then 9876543", "9876543", true},
		{"hello there", "", false},
		{"order 12345", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractOrderID(tt.transcript)
		if ok != tt.ok || got != tt.expected {
			t.Fatalf("%q: expected (%q, %t), got (%q, %t)", tt.transcript, tt.expected, tt.ok, got, ok)
		}
	}
}

func TestExtractProductName(t *testing.T) {
	tests := []struct {
		transcript string
		expected   string
		ok         bool
	}{
		{"Tell me about the wireless earbuds please", "the wireless earbuds", true},
		{"I want to know about Smart Watch X2.", "smart watch x2", true},
		{"power bank", "power bank", true},
		{"স্মার্ট ঘড়ি সম্পর্কে জানতে চাই", "স্মার্ট ঘড়ি", true},
		{"please", "", false},
		{"  ", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractProductName(tt.transcript)
		if ok != tt.ok || got != tt.expected {
			t.Fatalf("%q: expected (%q, %t), got (%q, %t)", tt.transcript, tt.expected, tt.ok, got, ok)
		}
	}
}
