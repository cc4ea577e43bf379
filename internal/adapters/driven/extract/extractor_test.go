package extract

import (
	"errors"
	"testing"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

func TestExtractor_Text(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{"txt", "policy.txt", []byte("VPN required."), "VPN required."},
		{"markdown upper ext", "HANDBOOK.MD", []byte("# Vacation\n20 days"), "# Vacation\n20 days"},
		{"strips bom", "bom.txt", []byte("\xef\xbb\xbfHello"), "Hello"},
		{"empty file", "empty.txt", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(tt.filename, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractor_Errors(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     error
	}{
		{"invalid utf8", "bad.txt", []byte{0xff, 0xfe, 0xfd}, domain.ErrInvalidInput},
		{"image", "scan.png", []byte{0x89, 'P', 'N', 'G'}, domain.ErrUnsupportedFormat},
		{"jpeg", "scan.JPG", []byte{0xff, 0xd8}, domain.ErrUnsupportedFormat},
		{"unknown", "sheet.xlsx", []byte("PK"), domain.ErrUnsupportedFormat},
		{"no extension", "README", []byte("text"), domain.ErrUnsupportedFormat},
		{"malformed pdf", "broken.pdf", []byte("%PDF-1.4 not really"), domain.ErrInvalidInput},
		{"empty pdf", "empty.pdf", []byte{}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.filename, tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExtractor_Supported(t *testing.T) {
	got := NewExtractor().Supported()
	want := map[string]bool{".md": true, ".pdf": true, ".txt": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d extensions, got %v", len(want), got)
	}
	for _, ext := range got {
		if !want[ext] {
			t.Errorf("unexpected extension %s", ext)
		}
	}
}
