package asset

import (
	stderrors "errors"
	"math/rand"
	"testing"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

func TestTypeCodeRoundTrip(t *testing.T) {
	check := func(n, o int) {
		t.Helper()
		code, err := EncodeTypeCode(n, o)
		if err != nil {
			t.Fatalf("EncodeTypeCode(%d, %d): %v", n, o, err)
		}
		gotN, gotO := DecodeTypeCode(code)
		if gotN != n || gotO != o {
			t.Fatalf("decode(encode(%d, %d)) = (%d, %d)", n, o, gotN, gotO)
		}
	}

	bounds := []int{0, 1, 2, 9, 10, 99, 999, 123456, MaxPacked - 2, MaxPacked - 1}
	for _, n := range bounds {
		for _, o := range bounds {
			check(n, o)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200000; i++ {
		check(rng.Intn(MaxPacked), rng.Intn(MaxPacked))
	}

	for o := 0; o < MaxPacked; o += 7 {
		check(2, o)
	}
}

func TestTypeCodeOverflow(t *testing.T) {
	tests := []struct {
		name string
		n, o int
	}{
		{"count", MaxPacked, 0},
		{"offset", 0, MaxPacked},
		{"both", MaxPacked + 5, MaxPacked + 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeTypeCode(tt.n, tt.o)
			if !stderrors.Is(err, ErrTypeCodeOverflow) {
				t.Fatalf("err = %v, want ErrTypeCodeOverflow", err)
			}
			if !errors.Is(err, errors.ErrCodeUnsupported) {
				t.Errorf("code = %s, want UNSUPPORTED", errors.GetCode(err))
			}
		})
	}

	if _, err := EncodeTypeCode(-1, 0); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("negative count err = %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		code    float64
		want    dialogue.Kind
		wantErr bool
	}{
		{0, dialogue.KindStart, false},
		{1, dialogue.KindDialogue, false},
		{2, dialogue.KindEnd, false},
		{3, dialogue.KindOption, false},
		{5.000002, dialogue.KindOption, false},
		{1.5, 0, true},
		{-1, 0, true},
	}
	for _, tt := range tests {
		got, err := KindOf(tt.code)
		if (err != nil) != tt.wantErr {
			t.Errorf("KindOf(%v) err = %v, wantErr %v", tt.code, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.code, got, tt.want)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeCorruptAsset) {
			t.Errorf("KindOf(%v) code = %s", tt.code, errors.GetCode(err))
		}
	}
}

func TestDecodeEngineValues(t *testing.T) {
	// The engine computes the offset term in single precision.
	code := float64(float32(3 + 2 + 4*1e-6))
	n, o := DecodeTypeCode(code)
	if n != 2 || o != 4 {
		t.Errorf("DecodeTypeCode(%v) = (%d, %d), want (2, 4)", code, n, o)
	}
}
