package mannequin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/mkrupp/vcloset/internal/mannequin"
)

func TestClampImperial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Imperial
		want Imperial
	}{
		{name: "in range", in: Imperial{Feet: 5, Inches: 7, Pounds: 154}, want: Imperial{Feet: 5, Inches: 7, Pounds: 154}},
		{name: "too small", in: Imperial{Feet: 0, Inches: -3, Pounds: 10}, want: Imperial{Feet: 3, Inches: 0, Pounds: 60}},
		{name: "too large", in: Imperial{Feet: 9, Inches: 14, Pounds: 900}, want: Imperial{Feet: 7, Inches: 11, Pounds: 400}},
		{name: "bounds", in: Imperial{Feet: 3, Inches: 11, Pounds: 400}, want: Imperial{Feet: 3, Inches: 11, Pounds: 400}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ClampImperial(tt.in))
		})
	}
}

func TestToMetric(t *testing.T) {
	t.Parallel()

	heightCm, weightKg := ToMetric(Imperial{Feet: 6, Inches: 0, Pounds: 200})
	assert.InDelta(t, 182.88, heightCm, 1e-9)
	assert.InDelta(t, 90.718474, weightKg, 1e-9)

	heightCm, weightKg = ToMetric(ClampImperial(Imperial{}))
	assert.InDelta(t, 91.44, heightCm, 1e-9)
	assert.InDelta(t, 27.2155422, weightKg, 1e-9)
}
