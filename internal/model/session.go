package model

// SessionResponse represents response for the /sessions endpoints
type SessionResponse struct {
	ID              string           `json:"id"`
	WalletConnected bool             `json:"walletConnected"`
	NetworkCorrect  bool             `json:"networkCorrect"`
	ContractReady   bool             `json:"contractReady"`
	State           string           `json:"state"`
	ChainID         string           `json:"chainId,omitempty"`
	AccountAddress  string           `json:"accountAddress,omitempty"`
	AccountQR       string           `json:"accountQR,omitempty"` // base64 PNG
	LastError       string           `json:"lastError,omitempty"`
	StorageOnline   bool             `json:"storageOnline"`
	Paper           *PaperSubmission `json:"paper"`
}

// OperationResponse represents the outcome of a gateway operation
type OperationResponse struct {
	Operation  string `json:"operation"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	PaperID    string `json:"paperId,omitempty"`
	CID        string `json:"cid,omitempty"`
	GatewayURL string `json:"gatewayUrl,omitempty"`
	QR         string `json:"qr,omitempty"` // base64 PNG of GatewayURL
}

// ExamTimeRequest represents request for POST /sessions/{id}/exam-time.
// Empty fields fall back to the session's paper form.
type ExamTimeRequest struct {
	PaperID               string `json:"paperId"`
	ExamStartEpochSeconds int64  `json:"examStartEpochSeconds"`
}

// ApproveRequest represents request for POST /sessions/{id}/approve
type ApproveRequest struct {
	PaperID       string `json:"paperId"`
	EncryptionKey string `json:"encryptionKey"`
}

// PaperReferenceRequest represents request for POST /sessions/{id}/paper-reference
type PaperReferenceRequest struct {
	ContentReference string `json:"contentReference"`
}

// ContractInfoResponse represents response for GET /sessions/{id}/contract
type ContractInfoResponse struct {
	Address    string `json:"address"`
	Admin      string `json:"admin"`
	PaperCount string `json:"paperCount"`
}

// PaperResponse represents response for GET /sessions/{id}/papers/{paperId}
type PaperResponse struct {
	PaperID       string `json:"paperId"`
	IpfsHash      string `json:"ipfsHash"`
	EncryptionKey string `json:"encryptionKey,omitempty"`
	StartTime     string `json:"startTime"`
	Approved      bool   `json:"approved"`
}

// StorageStatusResponse represents response for GET /storage/status
type StorageStatusResponse struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}
