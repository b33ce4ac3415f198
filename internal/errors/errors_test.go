package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinviewapp/coinview-go/internal/errors"
)

func TestBuilderPreservesWrappedError(t *testing.T) {
	t.Parallel()

	sentinel := errors.NewStd("upstream failed")
	wrapped := fmt.Errorf("fetch logo: %w", sentinel)

	ee := errors.New(wrapped).
		Component("logofetch").
		Category(errors.CategoryImageFetch).
		Context("url", "http://example.com/btc.png").
		Build()

	assert.Equal(t, "fetch logo: upstream failed", ee.Error())
	assert.True(t, errors.Is(ee, sentinel), "enhanced error should match the wrapped sentinel")
	assert.Equal(t, "logofetch", ee.GetComponent())
	assert.Equal(t, "image-fetch", ee.GetCategory())

	ctx := ee.GetContext()
	require.NotNil(t, ctx)
	assert.Equal(t, "http://example.com/btc.png", ctx["url"])
}

func TestCategoryMatching(t *testing.T) {
	t.Parallel()

	a := errors.Newf("primary connect failed").Category(errors.CategoryDatabase).Build()
	b := errors.Newf("replica connect failed").Category(errors.CategoryDatabase).Build()
	c := errors.Newf("bad url").Category(errors.CategoryValidation).Build()

	assert.True(t, errors.Is(a, b), "same category should match")
	assert.False(t, errors.Is(a, c), "different categories should not match")
}

func TestDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	ee := errors.Newf("plain failure").Build()
	assert.Equal(t, string(errors.CategoryGeneric), ee.GetCategory())
	assert.False(t, ee.Timestamp.IsZero())
}

func TestAsUnwrapsEnhancedError(t *testing.T) {
	t.Parallel()

	ee := errors.Newf("boom").Category(errors.CategoryNetwork).Build()
	outer := fmt.Errorf("request: %w", ee)

	var target *errors.EnhancedError
	require.True(t, errors.As(outer, &target))
	assert.Equal(t, errors.CategoryNetwork, target.Category)
}
