package supplies

import (
	"math"
	"testing"
)

func TestClassifyColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"empty string", "", "", false},
		{"whitespace only", "   ", "", false},
		{"black toner", "Black Toner", "Black", true},
		{"upper case", "BLACK", "Black", true},
		{"portuguese black", "Toner Preto", "Black", true},
		{"cyan", "cyan", "Cyan", true},
		{"magenta cartridge", "Magenta Cartridge S/N:123", "Magenta", true},
		{"yellow", "Yellow Toner", "Yellow", true},
		{"portuguese yellow", "Amarelo", "Yellow", true},
		{"waste toner", "Waste Toner Bottle", "", false},
		{"drum unit", "Drum Unit", "", false},
		{"abbreviation not recognized", "BK", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ClassifyColor(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ClassifyColor(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizePercentPassThrough(t *testing.T) {
	t.Parallel()

	for v := 0; v <= 100; v++ {
		if got := NormalizePercent(v); got != v {
			t.Errorf("NormalizePercent(%d) = %d, want %d", v, got, v)
		}
	}
}

func TestNormalizePercentEightBitScale(t *testing.T) {
	t.Parallel()

	for v := 101; v <= 255; v++ {
		want := int(math.Round(float64(v) / 255 * 100))
		got := NormalizePercent(v)
		if got != want {
			t.Errorf("NormalizePercent(%d) = %d, want %d", v, got, want)
		}
		if got < 0 || got > 100 {
			t.Errorf("NormalizePercent(%d) = %d out of range", v, got)
		}
	}
	if got := NormalizePercent(255); got != 100 {
		t.Errorf("NormalizePercent(255) = %d, want 100", got)
	}
}

func TestNormalizePercentFineScale(t *testing.T) {
	t.Parallel()

	for v := 256; v <= 10000; v++ {
		want := int(math.Round(float64(v) / 10000 * 100))
		got := NormalizePercent(v)
		if got != want {
			t.Fatalf("NormalizePercent(%d) = %d, want %d", v, got, want)
		}
		if got < 0 || got > 100 {
			t.Fatalf("NormalizePercent(%d) = %d out of range", v, got)
		}
	}
	if got := NormalizePercent(5000); got != 50 {
		t.Errorf("NormalizePercent(5000) = %d, want 50", got)
	}
}

func TestNormalizePercentOutOfRange(t *testing.T) {
	t.Parallel()

	for _, v := range []int{-1, -2, -3, -100, 10001, 65535, math.MaxInt32} {
		if got := NormalizePercent(v); got != 0 {
			t.Errorf("NormalizePercent(%d) = %d, want 0", v, got)
		}
	}
}

func TestNormalizePercentIdempotent(t *testing.T) {
	t.Parallel()

	for _, v := range []int{-5, 0, 42, 100, 101, 200, 255, 256, 9999, 10000, 10001} {
		once := NormalizePercent(v)
		if twice := NormalizePercent(once); twice != once {
			t.Errorf("NormalizePercent not idempotent for %d: %d then %d", v, once, twice)
		}
	}
}

func TestNormalizePercentString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want int
	}{
		{"75", 75},
		{" 200 ", 78},
		{"abc", 0},
		{"", 0},
		{"-2", 0},
	}
	for _, tt := range tests {
		if got := NormalizePercentString(tt.raw); got != tt.want {
			t.Errorf("NormalizePercentString(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCapacityPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    int
		capacity int
		want     int
	}{
		{"half", 500, 1000, 50},
		{"rounds", 1, 3, 33},
		{"rounds up", 2, 3, 67},
		{"full", 1000, 1000, 100},
		{"over capacity clamps", 1200, 1000, 100},
		{"negative level", -3, 1000, 0},
		{"zero capacity", 50, 0, 0},
		{"negative capacity", 50, -2, 0},
		{"empty", 0, 1000, 0},
	}
	for _, tt := range tests {
		if got := CapacityPercent(tt.level, tt.capacity); got != tt.want {
			t.Errorf("%s: CapacityPercent(%d, %d) = %d, want %d", tt.name, tt.level, tt.capacity, got, tt.want)
		}
	}
}
