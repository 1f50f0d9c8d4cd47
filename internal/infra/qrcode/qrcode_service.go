package qrcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"ordinem/internal/domain/service"

	"github.com/skip2/go-qrcode"
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// QRCodeData represents the QR code data structure
type QRCodeData struct {
	DeviceID string `json:"device_id"`
	Type     string `json:"type"`
}

const pairingQRType = "pairing"

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GeneratePairingQR generates a QR code for device pairing
func (s *qrcodeService) GeneratePairingQR(deviceID string) ([]byte, error) {
	data := QRCodeData{
		DeviceID: deviceID,
		Type:     pairingQRType,
	}

	// Convert to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QR code data: %w", err)
	}

	// Generate QR code
	qrCode, err := qrcode.New(string(jsonData), s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	// Generate PNG image
	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}

// ParsePairingQR parses QR code data and returns the device ID
func (s *qrcodeService) ParsePairingQR(qrData string) (string, error) {
	var data QRCodeData
	if err := json.Unmarshal([]byte(qrData), &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal QR code data: %w", err)
	}

	// Validate type
	if data.Type != pairingQRType {
		return "", fmt.Errorf("invalid QR code type: %s", data.Type)
	}

	if strings.TrimSpace(data.DeviceID) == "" {
		return "", fmt.Errorf("missing device ID in QR code data")
	}

	return data.DeviceID, nil
}
