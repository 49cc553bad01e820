package naming

import (
	"errors"
	"testing"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

func TestParse_ValidNames(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		owner    string
		color    model.ColorMode
		binding  model.BindingMode
		sequence string
	}{
		{
			name:     "canonical monochrome bound",
			filename: "abc12345_sw_mb_001.pdf",
			owner:    "abc12345",
			color:    model.ColorMono,
			binding:  model.BindingBound,
			sequence: "001",
		},
		{
			name:     "canonical color without binding",
			filename: "xyz00000_farbig_ob_002.pdf",
			owner:    "xyz00000",
			color:    model.ColorColor,
			binding:  model.BindingNone,
			sequence: "002",
		},
		{
			name:     "folder",
			filename: "mus43225_sw_sh_003.pdf",
			owner:    "mus43225",
			color:    model.ColorMono,
			binding:  model.BindingFolder,
			sequence: "003",
		},
		{
			name:     "long spelling with sharp s",
			filename: "abc12345_schwarzweiß_gebunden_001.pdf",
			owner:    "abc12345",
			color:    model.ColorMono,
			binding:  model.BindingBound,
			sequence: "001",
		},
		{
			name:     "upper case extension and tokens",
			filename: "ABC12345_SW_MB_001.PDF",
			owner:    "abc12345",
			color:    model.ColorMono,
			binding:  model.BindingBound,
			sequence: "001",
		},
		{
			name:     "mixed case extension",
			filename: "abc12345_sw_mb_001.Pdf",
			owner:    "abc12345",
			color:    model.ColorMono,
			binding:  model.BindingBound,
			sequence: "001",
		},
		{
			name:     "underscored color variant",
			filename: "abc12345_s_and_w_mit_bindung_004.pdf",
			owner:    "abc12345",
			color:    model.ColorMono,
			binding:  model.BindingBound,
			sequence: "004",
		},
		{
			name:     "hyphenated misspelling",
			filename: "abc12345_schwartz-weis_mit_bdg_010.pdf",
			owner:    "abc12345",
			color:    model.ColorMono,
			binding:  model.BindingBound,
			sequence: "010",
		},
		{
			name:     "color word farbe ungebunden",
			filename: "abc12345_farbe_ungebunden_007.pdf",
			owner:    "abc12345",
			color:    model.ColorColor,
			binding:  model.BindingNone,
			sequence: "007",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.filename, "/in/"+tt.filename)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.filename, err)
			}
			if req.OwnerID != tt.owner {
				t.Fatalf("OwnerID = %q, want %q", req.OwnerID, tt.owner)
			}
			if req.Color != tt.color {
				t.Fatalf("Color = %q, want %q", req.Color, tt.color)
			}
			if req.Binding != tt.binding {
				t.Fatalf("Binding = %q, want %q", req.Binding, tt.binding)
			}
			if req.Sequence != tt.sequence {
				t.Fatalf("Sequence = %q, want %q", req.Sequence, tt.sequence)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{
			name:     "too few parts",
			filename: "abc12345_sw_001.pdf",
			wantErr:  ErrMalformedName,
		},
		{
			name:     "no underscores",
			filename: "skript.pdf",
			wantErr:  ErrMalformedName,
		},
		{
			name:     "owner too short",
			filename: "ab1234_sw_mb_001.pdf",
			wantErr:  ErrInvalidOwnerID,
		},
		{
			name:     "owner with digits first",
			filename: "12345abc_sw_mb_001.pdf",
			wantErr:  ErrInvalidOwnerID,
		},
		{
			name:     "sequence not three digits",
			filename: "abc12345_sw_mb_1.pdf",
			wantErr:  ErrMalformedName,
		},
		{
			name:     "unknown color token",
			filename: "abc12345_sepia_mb_001.pdf",
			wantErr:  ErrUnknownColorToken,
		},
		{
			name:     "unknown binding token",
			filename: "abc12345_sw_spirale_001.pdf",
			wantErr:  ErrUnknownBindingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.filename, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

// Все варианты написания одного токена должны давать одинаковую
// классификацию независимо от регистра и диакритики.
func TestParse_SpellingVariantsRoundTrip(t *testing.T) {
	for _, spelling := range monoSpellings {
		req, err := Parse("abc12345_"+spelling+"_mb_001.pdf", "")
		if err != nil {
			t.Fatalf("Parse with color spelling %q error: %v", spelling, err)
		}
		if req.Color != model.ColorMono {
			t.Fatalf("spelling %q parsed as %q, want %q", spelling, req.Color, model.ColorMono)
		}
		if got := CanonicalColorToken(req.Color); got != "sw" {
			t.Fatalf("canonical token for %q = %q, want sw", spelling, got)
		}
	}

	for _, spelling := range boundSpellings {
		req, err := Parse("abc12345_sw_"+spelling+"_001.pdf", "")
		if err != nil {
			t.Fatalf("Parse with binding spelling %q error: %v", spelling, err)
		}
		if req.Binding != model.BindingBound {
			t.Fatalf("spelling %q parsed as %q, want %q", spelling, req.Binding, model.BindingBound)
		}
		if got := CanonicalBindingToken(req.Binding); got != "mb" {
			t.Fatalf("canonical token for %q = %q, want mb", spelling, got)
		}
	}

	for _, spelling := range unboundSpellings {
		req, err := Parse("abc12345_farbig_"+spelling+"_001.pdf", "")
		if err != nil {
			t.Fatalf("Parse with binding spelling %q error: %v", spelling, err)
		}
		if req.Binding != model.BindingNone {
			t.Fatalf("spelling %q parsed as %q, want %q", spelling, req.Binding, model.BindingNone)
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	const name = "abc12345_schwarz-weiß_m.bindung_005.pdf"

	first, err1 := Parse(name, "")
	second, err2 := Parse(name, "")
	if err1 != nil || err2 != nil {
		t.Fatalf("Parse errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Fatalf("Parse not deterministic: %+v vs %+v", first, second)
	}
}
