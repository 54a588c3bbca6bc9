package crypto

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AlexZinkM/exam-admin/internal/model"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// DecryptWallet reads and decrypts a .cwt file.
// password must be []byte so the caller can zero it after use.
func DecryptWallet(filePath string, password []byte) (*model.CWTFile, *model.WalletData, error) {
	cwtFile, err := readCWT(filePath)
	if err != nil {
		return nil, nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(cwtFile.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(cwtFile.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(cwtFile.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	n := cwtFile.ScryptN
	if n == 0 {
		n = defaultScryptN
	}
	aesGCM, err := newAEAD(password, salt, n)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, errors.New("invalid password")
	}
	defer clear(plaintext)

	var walletData model.WalletData
	if err := json.Unmarshal(plaintext, &walletData); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal wallet data: %w", err)
	}
	return cwtFile, &walletData, nil
}

// LoadSigner decrypts filePath and returns the signer key. The key's address must match the
// address recorded in the file.
func LoadSigner(filePath string, password []byte) (*ecdsa.PrivateKey, error) {
	cwtFile, walletData, err := DecryptWallet(filePath, password)
	if err != nil {
		return nil, err
	}
	defer clear(walletData.PrivateKey)

	key, err := ethcrypto.ToECDSA(walletData.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	address := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	if cwtFile.Address != "" && !strings.EqualFold(cwtFile.Address, address) {
		return nil, fmt.Errorf("key file address %s does not match key %s", cwtFile.Address, address)
	}
	return key, nil
}

// ReadWalletAddress reads only the address from a .cwt file, without decrypting it.
func ReadWalletAddress(filePath string) (string, error) {
	cwtFile, err := readCWT(filePath)
	if err != nil {
		return "", err
	}
	return cwtFile.Address, nil
}
