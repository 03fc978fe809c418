package validator

import (
	"testing"

	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoValidator(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(entity.BusinessProfileData{BusinessName: "Acme"}))

	err := v.Validate(entity.BusinessProfileData{VATFilingPeriod: "yearly"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))

	appErr, ok := errors.AsType[*domainerrors.BaseError](err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details(), "business_name")
	assert.Contains(t, appErr.Details(), "vat_filing_period")
}
