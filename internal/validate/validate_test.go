package validate

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Zip   string  `json:"zip_code" validate:"required,len=5,numeric"`
	Price float64 `json:"price_tier" validate:"omitempty,gte=1,lte=4"`
	Noise string  `json:"noise_level" validate:"omitempty,oneof=quiet loud"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name  string
		req   request
		field string
		msg   string
	}{
		{"missing zip", request{}, "zip_code", "zip_code is required"},
		{"short zip", request{Zip: "0805"}, "zip_code", "zip_code must have length 5"},
		{"letters", request{Zip: "08O53"}, "zip_code", "zip_code must be numeric"},
		{"price too high", request{Zip: "08053", Price: 5}, "price_tier", "price_tier must be less than or equal to 4"},
		{"bad noise", request{Zip: "08053", Noise: "deafening"}, "noise_level", "noise_level must be one of: quiet loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			require.Error(t, err)
			var ve *Error
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve.Fields, 1)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
			assert.Equal(t, tt.msg, ve.Fields[0].Message)
		})
	}

	assert.NoError(t, Struct(request{Zip: "08053", Price: 2, Noise: "quiet"}))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(Invalid("limit", "limit must be at most 30")))
	assert.False(t, IsValidation(eris.New("boom")))
	assert.Equal(t, "validation failed: a; b", (&Error{Fields: []FieldError{{Message: "a"}, {Message: "b"}}}).Error())
}
