package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  *float64
	}{
		{name: "grams", input: "600g", want: ptr(0.6)},
		{name: "kilograms", input: "1.2kg", want: ptr(1.2)},
		{name: "compound grams", input: "2 x 300g", want: ptr(0.6)},
		{name: "compound without spaces", input: "12x100g", want: ptr(1.2)},
		{name: "grams with trailing dot", input: "77g .", want: ptr(0.077)},
		{name: "decimal grams", input: "0.5g", want: ptr(0.0005)},
		{name: "no unit assumed kilograms", input: "16oz", want: ptr(16)},
		{name: "millilitres not converted", input: "100ml", want: ptr(100)},
		{name: "bogus", input: "bogus", want: nil},
		{name: "compound with code", input: "2 x exit(1)", want: nil},
		{name: "compound with parens", input: "2 x (3)g", want: nil},
		{name: "empty", input: "", want: nil},
		{name: "nil", input: nil, want: nil},
		{name: "number", input: 3.5, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weight(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestWeightExact(t *testing.T) {
	got := Weight("2 x 300g")
	require.NotNil(t, got)
	assert.Equal(t, 0.6, *got)

	got = Weight("600g")
	require.NotNil(t, got)
	assert.Equal(t, 0.6, *got)
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		expr    string
		want    string
		wantErr bool
	}{
		{expr: "2*300", want: "600"},
		{expr: "2*300+1.5", want: "601.5"},
		{expr: "1+2*3", want: "7"},
		{expr: "42", want: "42"},
		{expr: "", wantErr: true},
		{expr: "2**3", wantErr: true},
		{expr: "2*-3", wantErr: true},
		{expr: "2/3", wantErr: true},
		{expr: "1.2.3", wantErr: true},
		{expr: ".5*2", wantErr: true},
		{expr: "__import__('os')", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalArithmetic(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsafeExpression))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func ptr(f float64) *float64 {
	return &f
}
