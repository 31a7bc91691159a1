package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePaymentData_Errors(t *testing.T) {
	tests := []struct {
		name    string
		purpose Purpose
		raw     string
		wantErr error
	}{
		{"unknown purpose", Purpose("donation"), `{"bookings":[{}]}`, ErrUnknownPurpose},
		{"nil snapshot", PurposeServiceBooking, ``, ErrEmptyPaymentData},
		{"null snapshot", PurposeBuyBooks, `null`, ErrEmptyPaymentData},
		{"empty object", PurposeBuyBooks, `{}`, ErrEmptyPaymentData},
		{"empty bookings", PurposeServiceBooking, `{"bookings":[]}`, ErrEmptyPaymentData},
		{"cart under booking purpose", PurposeServiceBooking, `{"cart":[{"id":"B1","quantity":1}]}`, ErrEmptyPaymentData},
		{"empty cart", PurposeBuyBooks, `{"cart":[]}`, ErrEmptyPaymentData},
		{"cart line without id", PurposeBuyBooks, `{"cart":[{"quantity":1}]}`, ErrEmptyPaymentData},
		{"cart line with zero quantity", PurposeBuyBooks, `{"cart":[{"id":"B1","quantity":0}]}`, ErrEmptyPaymentData},
		{"malformed json", PurposeBuyBooks, `{"cart":`, ErrEmptyPaymentData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePaymentData(tt.purpose, json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodePaymentData_ServiceBooking(t *testing.T) {
	raw := `{"bookings":[{"service_type":"mass","beneficiary_name":"Mary","intention":"healing","amount":"118","base_amount":100,"cgst":9,"sgst":9,"tax_amount":18,"currency":"INR"}]}`

	data, err := DecodePaymentData(PurposeServiceBooking, json.RawMessage(raw))
	require.NoError(t, err)
	require.NotNil(t, data.Bookings)
	assert.Nil(t, data.Books)
	require.Len(t, data.Bookings.Bookings, 1)

	b := data.Bookings.Bookings[0]
	assert.Equal(t, "mass", b.ServiceType)
	assert.Equal(t, "Mary", b.BeneficiaryName)
	assert.True(t, b.Amount.Equal(decimal.NewFromInt(118)))
	assert.True(t, b.CGST.Equal(decimal.NewFromInt(9)))
}

func TestDecodePaymentData_BuyBooks(t *testing.T) {
	raw := `{"cart":[{"id":"B1","quantity":2,"price":100,"title":"Bible"}],"user_info":{"name":"John","address":"12 Church St"}}`

	data, err := DecodePaymentData(PurposeBuyBooks, json.RawMessage(raw))
	require.NoError(t, err)
	require.NotNil(t, data.Books)
	assert.Nil(t, data.Bookings)
	assert.Equal(t, "12 Church St", data.Books.UserInfo.Address)
	assert.Equal(t, 2, data.Books.Cart[0].Quantity)
}

func TestDecodePaymentData_StringEncodedSnapshot(t *testing.T) {
	inner := `{"cart":[{"id":"B1","quantity":1,"price":50,"title":"Psalms"}]}`
	encoded, err := json.Marshal(inner)
	require.NoError(t, err)

	data, err := DecodePaymentData(PurposeBuyBooks, encoded)
	require.NoError(t, err)
	assert.Equal(t, "Psalms", data.Books.Cart[0].Title)
}

func TestRestoreStatus_Restorable(t *testing.T) {
	assert.True(t, StatusPendingRestore.Restorable())
	assert.True(t, StatusFailed.Restorable())
	assert.False(t, StatusRestored.Restorable())
	assert.False(t, RestoreStatus("UNKNOWN").Valid())
}
