package main

import (
	"fmt"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/common"
	"github.com/AlexZinkM/exam-admin/internal/crypto"
	"github.com/AlexZinkM/exam-admin/internal/model"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// GenerateSigner creates a new key and writes it to filePath. It returns the signer address.
// password must be []byte so the caller can zero it after use.
func GenerateSigner(filePath, network string, password []byte) (string, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	address := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	qrCode, err := common.QRCode(address)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	walletData := &model.WalletData{
		PrivateKey: ethcrypto.FromECDSA(key),
		CreatedAt:  time.Now().Format(time.RFC3339),
	}
	defer clear(walletData.PrivateKey)

	if err := crypto.EncryptWallet(filePath, network, address, qrCode, walletData, password); err != nil {
		return "", fmt.Errorf("failed to encrypt key: %w", err)
	}
	return address, nil
}
