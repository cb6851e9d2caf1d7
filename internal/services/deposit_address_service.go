package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"sync"

	"github.com/cryptoarcade/backend/internal/config"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// DepositAddress tells a player where to send funds on a network.
type DepositAddress struct {
	Network    string          `json:"network"`
	Currency   string          `json:"currency"`
	Address    string          `json:"address"`
	MinDeposit decimal.Decimal `json:"min_deposit"`
	QRCode     string          `json:"qr_code"` // base64 PNG
}

type DepositAddressService struct {
	cfg *config.FundsConfig

	mu    sync.Mutex
	cache map[string]*DepositAddress
}

func NewDepositAddressService(cfg *config.FundsConfig) *DepositAddressService {
	return &DepositAddressService{cfg: cfg, cache: make(map[string]*DepositAddress)}
}

// Address returns the house address for network with its QR code.
func (s *DepositAddressService) Address(network string) (*DepositAddress, error) {
	n, ok := s.cfg.Network(strings.ToUpper(strings.TrimSpace(network)))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported network %q", models.ErrInvalidRequest, network)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if addr, ok := s.cache[n.Name]; ok {
		cp := *addr
		return &cp, nil
	}

	qr, err := qrcode.New(n.HouseAddress, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return nil, err
	}

	addr := &DepositAddress{
		Network:    n.Name,
		Currency:   s.cfg.Currency,
		Address:    n.HouseAddress,
		MinDeposit: s.cfg.DepositMin,
		QRCode:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	s.cache[n.Name] = addr
	cp := *addr
	return &cp, nil
}
