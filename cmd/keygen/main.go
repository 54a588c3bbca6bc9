// Generates a secp256k1 signer key and stores it encrypted in a .cwt file for WALLET_PROVIDER=local.
// Usage: go run ./cmd/keygen -out signer.cwt
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/AlexZinkM/exam-admin/internal/config"
	"github.com/AlexZinkM/exam-admin/internal/model"
)

func main() {
	out := flag.String("out", "signer.cwt", "path of the .cwt file to create")
	network := flag.String("network", "sepolia", "network label stored in the file")
	flag.Parse()

	resp, err := run(*out, *network)
	if err != nil {
		resp = model.GenerateResponse{Success: false, Message: err.Error()}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(resp)
	if err != nil {
		os.Exit(1)
	}
}

func run(out, network string) (model.GenerateResponse, error) {
	password, err := config.ReadSecret("New key file password: ")
	if err != nil {
		return model.GenerateResponse{}, err
	}
	defer clear(password)

	repeat, err := config.ReadSecret("Repeat password: ")
	if err != nil {
		return model.GenerateResponse{}, err
	}
	defer clear(repeat)
	if !bytes.Equal(password, repeat) {
		return model.GenerateResponse{}, errors.New("passwords do not match")
	}

	address, err := GenerateSigner(out, network, password)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return model.GenerateResponse{}, fmt.Errorf("%s already holds a key: %w", out, err)
		}
		return model.GenerateResponse{}, err
	}
	return model.GenerateResponse{
		Success: true,
		Message: "Signer key generated successfully",
		Address: address,
		File:    out,
	}, nil
}
