package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"testing"

	"github.com/cryptoarcade/backend/internal/config"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAddressService(t *testing.T) {
	service := NewDepositAddressService(config.LoadFundsConfig())

	addr, err := service.Address("bep-20")
	require.NoError(t, err)
	assert.Equal(t, "BEP-20", addr.Network)
	assert.Equal(t, "USDT", addr.Currency)
	assert.Equal(t, "0x55d398326f99059fF775485246999027B3197955", addr.Address)

	raw, err := base64.StdEncoding.DecodeString(addr.QRCode)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	again, err := service.Address("BEP-20")
	require.NoError(t, err)
	assert.Equal(t, addr.QRCode, again.QRCode)

	_, err = service.Address("ERC-20")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestReferralService_Earnings(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	ledger := NewLedgerService(st, nil, 1)

	referrer, err := ledger.CreateAccount(ctx, "ref", "Referrer", "")
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2"} {
		_, err := ledger.CreateAccount(ctx, id, id, referrer.ReferralCode)
		require.NoError(t, err)
	}
	require.NoError(t, ledger.RecordStats(ctx, "p1", dec("100"), dec("0")))
	require.NoError(t, ledger.RecordStats(ctx, "p2", dec("33.33"), dec("10")))

	earnings, err := NewReferralService(st, 0.05).Earnings(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, referrer.ReferralCode, earnings.ReferralCode)
	assert.Equal(t, 2, earnings.ReferredCount)
	assert.True(t, earnings.ReferredWagered.Equal(dec("133.33")))
	assert.True(t, earnings.Earnings.Equal(dec("6.66")))

	_, err = NewReferralService(st, 0.05).Earnings(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
