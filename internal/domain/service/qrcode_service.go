package service

// QRCodeService generates and parses device pairing QR codes.
type QRCodeService interface {
	// GeneratePairingQR renders the pairing payload for a device as a PNG.
	GeneratePairingQR(deviceID string) ([]byte, error)

	// ParsePairingQR validates a scanned QR payload and returns the encoded
	// device id.
	ParsePairingQR(qrData string) (string, error)
}
