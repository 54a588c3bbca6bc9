package model

// GenerateResponse is printed by keygen after a signer key file is written
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
	File    string `json:"file,omitempty"`
}
