package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/apperr"
)

type reviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Content string `json:"content" validate:"min=3,max=5000"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

func TestValidateRatingBounds(t *testing.T) {
	v := New()

	for _, rating := range []int{1, 5} {
		assert.NoError(t, v.Validate(reviewInput{Rating: rating, Content: "Decent read."}), "rating %d", rating)
	}

	for _, rating := range []int{0, 6} {
		err := v.Validate(reviewInput{Rating: rating, Content: "Decent read."})
		require.Error(t, err, "rating %d", rating)
		assert.True(t, errors.Is(err, apperr.ErrValidation))

		details, ok := apperr.DetailsOf(err).(map[string]string)
		require.True(t, ok)
		assert.Contains(t, details, "rating")
	}
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := New().Validate(reviewInput{Rating: 3, Content: "ab", Email: "nope"})
	require.Error(t, err)

	details := apperr.DetailsOf(err).(map[string]string)
	assert.Equal(t, "must be at least 3 characters", details["content"])
	assert.Equal(t, "must be a valid email address", details["email"])
	assert.NotContains(t, details, "Content")
}

func TestValidateNonStruct(t *testing.T) {
	err := New().Validate("not a struct")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
