package submission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

func TestCustomerValidator(t *testing.T) {
	cv := NewCustomerValidator(map[string]int{"+91": 10, "+971": 9})

	tests := []struct {
		name   string
		mutate func(*models.Customer)
		field  string
	}{
		{"valid", func(*models.Customer) {}, ""},
		{"uae nine digits", func(c *models.Customer) { c.CountryCode = "+971"; c.Phone = "501234567" }, ""},
		{"unknown code within bounds", func(c *models.Customer) { c.CountryCode = "+65"; c.Phone = "81234567" }, ""},
		{"india short number", func(c *models.Customer) { c.Phone = "98765432" }, "customer.phone"},
		{"uae ten digits", func(c *models.Customer) { c.CountryCode = "+971"; c.Phone = "5012345678" }, "customer.phone"},
		{"signed phone", func(c *models.Customer) { c.Phone = "+987654321" }, "customer.phone"},
		{"letters in phone", func(c *models.Customer) { c.Phone = "98765abcde" }, "customer.phone"},
		{"unknown code too short", func(c *models.Customer) { c.CountryCode = "+65"; c.Phone = "123" }, "customer.phone"},
		{"email without tld", func(c *models.Customer) { c.Email = "asha@example" }, "customer.email"},
		{"email with space", func(c *models.Customer) { c.Email = "asha rao@example.com" }, "customer.email"},
		{"missing name", func(c *models.Customer) { c.FullName = "" }, "customer.fullName"},
		{"missing pincode", func(c *models.Customer) { c.Pincode = "" }, "customer.pincode"},
		{"code without plus", func(c *models.Customer) { c.CountryCode = "91" }, "customer.countryCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := customer()
			tt.mutate(&c)
			err := cv.Validate(c)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestStateAdvance(t *testing.T) {
	assert.True(t, StateDraft.CanAdvance(StateValidating))
	assert.True(t, StateAudited.CanAdvance(StateComplete))
	assert.True(t, StatePersisted.CanAdvance(StateFailed))
	assert.False(t, StateDraft.CanAdvance(StatePersisted))
	assert.False(t, StateComplete.CanAdvance(StateFailed))
	assert.False(t, StateFailed.CanAdvance(StateValidating))
	assert.Equal(t, "id_allocated", StateIDAllocated.String())
}

func TestInFlightGuard(t *testing.T) {
	g := NewInFlightGuard()

	release, ok := g.Acquire("Asha@Example.com")
	require.True(t, ok)
	_, ok = g.Acquire(" asha@example.com ")
	assert.False(t, ok)
	_, held := g.Since("asha@example.com")
	assert.True(t, held)

	release()
	release()
	_, ok = g.Acquire("asha@example.com")
	assert.True(t, ok)
}
