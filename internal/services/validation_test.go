package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type withdrawalForm struct {
	Network string          `validate:"required,oneof=TRC-20 BEP-20"`
	Address string          `validate:"required,tron_address"`
	Amount  decimal.Decimal `validate:"gt=0"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := withdrawalForm{
			Network: "TRC-20",
			Address: "TXk8rQSAvPvBBNtqSoY6nCfsXWCSSpTVQF",
			Amount:  decimal.NewFromInt(25),
		}

		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("invalid struct", func(t *testing.T) {
		invalid := withdrawalForm{
			Network: "ERC-20",
			Address: "0x55d398326f99059fF775485246999027B3197955",
			Amount:  decimal.NewFromInt(-1),
		}

		err := vh.ValidateStruct(&invalid)
		require.Error(t, err)

		var validationErrors validator.ValidationErrors
		require.True(t, errors.As(err, &validationErrors))
		assert.Len(t, validationErrors, 3)
	})
}

func TestValidationHelper_AddressTags(t *testing.T) {
	vh := NewValidationHelper()

	tests := []struct {
		value string
		tag   string
		ok    bool
	}{
		{"TXk8rQSAvPvBBNtqSoY6nCfsXWCSSpTVQF", "tron_address", true},
		{"TXk8rQSAvPvBBNtqSoY6nCfsXWCSSpTVQ0", "tron_address", false}, // 0 is not base58
		{"TXk8rQ", "tron_address", false},
		{"0x55d398326f99059fF775485246999027B3197955", "bsc_address", true},
		{"0x55d398326f99059fF775485246999027B319795", "bsc_address", false},
		{"55d398326f99059fF775485246999027B3197955aa", "bsc_address", false},
		{"0xabc123", "tx_hash", true},
		{"abc 123", "tx_hash", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag+"/"+tt.value, func(t *testing.T) {
			err := vh.ValidateVar(tt.value, tt.tag)
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.True(t, Money(decimal.RequireFromString("10.25")))
	assert.False(t, Money(decimal.RequireFromString("10.255")))
	assert.False(t, Money(decimal.Zero))
	assert.False(t, Money(decimal.NewFromInt(-5)))
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&withdrawalForm{})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Network")
		assert.Contains(t, response.Details, "Address")
	})

	t.Run("non validation error leaves details empty", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, errors.New("boom"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Invalid request", response.Error)
		assert.Nil(t, response.Details)
	})
}
