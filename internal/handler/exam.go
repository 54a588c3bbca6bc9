package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/common"
	"github.com/AlexZinkM/exam-admin/internal/errs"
	"github.com/AlexZinkM/exam-admin/internal/gateway"
	"github.com/AlexZinkM/exam-admin/internal/metrics"
	"github.com/AlexZinkM/exam-admin/internal/model"
	"github.com/AlexZinkM/exam-admin/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

type session struct {
	id      string
	conn    *wallet.Session
	gateway *gateway.Gateway

	mu            sync.Mutex
	paper         model.PaperSubmission
	storageOnline bool
}

// ExamHandler serves the exam administration workflow. Every operator works in their own
// session; sessions share the wallet provider and the pinning client but no state.
type ExamHandler struct {
	provider wallet.Provider
	wallet   wallet.Config
	pinner   gateway.Pinner
	location *time.Location
	logger   *zap.Logger
	metrics  *metrics.Collector

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewExamHandler creates a handler. provider may be nil when no wallet is configured;
// sessions then report WalletUnavailable.
func NewExamHandler(provider wallet.Provider, walletCfg wallet.Config, pinner gateway.Pinner,
	location *time.Location, logger *zap.Logger, collector *metrics.Collector) *ExamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	if collector == nil {
		collector = metrics.New(nil)
	}
	return &ExamHandler{
		provider: provider,
		wallet:   walletCfg,
		pinner:   pinner,
		location: location,
		logger:   logger,
		metrics:  collector,
		sessions: make(map[string]*session),
	}
}

// CreateSession handles POST /sessions
// @Summary      Open operator session
// @Description  Creates a session, detects the wallet, resumes an authorised account and probes the storage service
// @Tags         sessions
// @Produce      json
// @Success      201  {object}  model.SessionResponse
// @Router       /sessions [post]
func (h *ExamHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	logger := h.logger.With(zap.String("session", id))
	conn := wallet.NewSession(h.provider, h.wallet, logger, h.metrics)
	s := &session{
		id:      id,
		conn:    conn,
		gateway: gateway.New(conn, h.pinner, logger, h.metrics),
	}

	// handshake failures are recorded in the session status
	_ = conn.Start(r.Context())
	s.storageOnline = s.gateway.ProbeStorageService(r.Context())

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()
	h.metrics.SessionOpened()
	logger.Info("Session opened", zap.String("state", conn.State().String()))

	writeJSON(w, http.StatusCreated, h.sessionResponse(s))
}

// GetSession handles GET /sessions/{id}
// @Summary      Session status
// @Description  Returns connection status, paper form and storage availability
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  model.SessionResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /sessions/{id} [get]
func (h *ExamHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(s))
}

// DeleteSession handles DELETE /sessions/{id}
// @Summary      Close operator session
// @Description  Releases wallet notifications and drops the session
// @Tags         sessions
// @Param        id   path      string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  model.ErrorResponse
// @Router       /sessions/{id} [delete]
func (h *ExamHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: errSessionNotFound.Error()})
		return
	}

	s.conn.Close()
	h.metrics.SessionClosed()
	h.logger.Info("Session closed", zap.String("session", id))
	w.WriteHeader(http.StatusNoContent)
}

// Close tears down every session.
func (h *ExamHandler) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.conn.Close()
		h.metrics.SessionClosed()
	}
}

// Connect handles POST /sessions/{id}/connect
// @Summary      Connect wallet
// @Description  Requests account access, verifies the network (switching or adding it) and binds the contract
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  model.SessionResponse
// @Failure      403  {object}  model.ErrorResponse
// @Failure      409  {object}  model.ErrorResponse
// @Failure      503  {object}  model.ErrorResponse
// @Router       /sessions/{id}/connect [post]
func (h *ExamHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if _, err := s.conn.Connect(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(s))
}

// UpdatePaper handles PUT /sessions/{id}/paper
// @Summary      Edit paper form
// @Description  Sets paper id, exam date (YYYY-MM-DD) and exam time (HH:MM); the start time is derived when both are present
// @Tags         papers
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Session ID"
// @Param        request  body      model.PaperForm  true  "Paper form"
// @Success      200      {object}  model.PaperSubmission
// @Failure      400      {object}  model.ErrorResponse
// @Router       /sessions/{id}/paper [put]
func (h *ExamHandler) UpdatePaper(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var form model.PaperForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeBadRequest(w, err)
		return
	}

	s.mu.Lock()
	err := s.paper.Apply(form, h.location)
	paper := s.paper
	s.mu.Unlock()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// SetExamTime handles POST /sessions/{id}/exam-time
// @Summary      Set exam time
// @Description  Submits setExamTime for the paper. Missing fields fall back to the session's paper form
// @Tags         papers
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true   "Session ID"
// @Param        request  body      model.ExamTimeRequest  false  "Overrides"
// @Success      200      {object}  model.OperationResponse
// @Failure      412      {object}  model.OperationResponse
// @Failure      502      {object}  model.OperationResponse
// @Router       /sessions/{id}/exam-time [post]
func (h *ExamHandler) SetExamTime(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req model.ExamTimeRequest
	if err := decodeOptional(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	s.mu.Lock()
	if req.PaperID == "" {
		req.PaperID = s.paper.PaperID
	}
	if req.ExamStartEpochSeconds == 0 && s.paper.ExamStartEpochSeconds != nil {
		req.ExamStartEpochSeconds = *s.paper.ExamStartEpochSeconds
	}
	s.mu.Unlock()

	h.writeResult(w, s.gateway.SetExamTime(r.Context(), req.PaperID, req.ExamStartEpochSeconds))
}

// ApprovePaper handles POST /sessions/{id}/approve
// @Summary      Approve paper
// @Description  Submits approvePaper for the paper. The encryption key is optional
// @Tags         papers
// @Accept       json
// @Produce      json
// @Param        id       path      string                true   "Session ID"
// @Param        request  body      model.ApproveRequest  false  "Overrides"
// @Success      200      {object}  model.OperationResponse
// @Failure      412      {object}  model.OperationResponse
// @Failure      502      {object}  model.OperationResponse
// @Router       /sessions/{id}/approve [post]
func (h *ExamHandler) ApprovePaper(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req model.ApproveRequest
	if err := decodeOptional(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	if req.PaperID == "" {
		s.mu.Lock()
		req.PaperID = s.paper.PaperID
		s.mu.Unlock()
	}

	h.writeResult(w, s.gateway.ApprovePaper(r.Context(), req.PaperID, req.EncryptionKey))
}

// UploadPaperReference handles POST /sessions/{id}/paper-reference
// @Summary      Register paper reference
// @Description  Submits uploadPaper with the content reference of the uploaded file
// @Tags         papers
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true   "Session ID"
// @Param        request  body      model.PaperReferenceRequest  false  "Overrides"
// @Success      200      {object}  model.OperationResponse
// @Failure      412      {object}  model.OperationResponse
// @Failure      502      {object}  model.OperationResponse
// @Router       /sessions/{id}/paper-reference [post]
func (h *ExamHandler) UploadPaperReference(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req model.PaperReferenceRequest
	if err := decodeOptional(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	if req.ContentReference == "" {
		s.mu.Lock()
		if s.paper.ContentReference != nil {
			req.ContentReference = *s.paper.ContentReference
		}
		s.mu.Unlock()
	}

	res := s.gateway.UploadPaperReference(r.Context(), req.ContentReference)
	if res.OK && res.PaperID != "" {
		s.mu.Lock()
		s.paper.PaperID = res.PaperID
		s.mu.Unlock()
	}
	h.writeResult(w, res)
}

// UploadFile handles POST /sessions/{id}/upload
// @Summary      Upload paper file
// @Description  Pins the file to IPFS and records its content identifier in the session
// @Tags         papers
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Session ID"
// @Param        file  formData  file    true  "Paper file"
// @Success      200   {object}  model.OperationResponse
// @Failure      412   {object}  model.OperationResponse
// @Failure      502   {object}  model.OperationResponse
// @Router       /sessions/{id}/upload [post]
func (h *ExamHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var (
		data []byte
		name string
	)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// reported by the gateway as a precondition failure
	case err != nil:
		writeBadRequest(w, err)
		return
	default:
		defer file.Close()
		name = header.Filename
		if data, err = io.ReadAll(file); err != nil {
			writeBadRequest(w, fmt.Errorf("failed to read upload: %w", err))
			return
		}
	}

	res := s.gateway.UploadFile(r.Context(), data, name)
	if res.OK {
		s.mu.Lock()
		s.paper.SetContentReference(res.CID)
		s.mu.Unlock()
	}
	h.writeResult(w, res)
}

// GetPaper handles GET /sessions/{id}/papers/{paperId}
// @Summary      Read paper record
// @Description  Reads papers(paperId) from the registry contract
// @Tags         papers
// @Produce      json
// @Param        id       path      string  true  "Session ID"
// @Param        paperId  path      string  true  "Paper ID"
// @Success      200      {object}  model.PaperResponse
// @Failure      412      {object}  model.ErrorResponse
// @Router       /sessions/{id}/papers/{paperId} [get]
func (h *ExamHandler) GetPaper(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	paperID := r.PathValue("paperId")
	paper, err := s.gateway.Paper(r.Context(), paperID)
	if err != nil {
		h.writeReadError(w, err)
		return
	}

	resp := model.PaperResponse{
		PaperID:       paperID,
		IpfsHash:      paper.IpfsHash,
		EncryptionKey: paper.EncryptionKey,
		Approved:      paper.Approved,
	}
	if paper.StartTime != nil {
		resp.StartTime = paper.StartTime.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetContract handles GET /sessions/{id}/contract
// @Summary      Registry info
// @Description  Reads admin() and paperCount() from the registry contract
// @Tags         papers
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  model.ContractInfoResponse
// @Failure      412  {object}  model.ErrorResponse
// @Router       /sessions/{id}/contract [get]
func (h *ExamHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	info, err := s.gateway.Inspect(r.Context())
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ContractInfoResponse{
		Address:    info.Address.Hex(),
		Admin:      info.Admin.Hex(),
		PaperCount: info.PaperCount.String(),
	})
}

// StorageStatus handles GET /storage/status
// @Summary      Storage service status
// @Description  Tests the pinning service credentials
// @Tags         storage
// @Produce      json
// @Success      200  {object}  model.StorageStatusResponse
// @Router       /storage/status [get]
func (h *ExamHandler) StorageStatus(w http.ResponseWriter, r *http.Request) {
	connected := gateway.New(nil, h.pinner, h.logger, h.metrics).ProbeStorageService(r.Context())
	resp := model.StorageStatusResponse{Connected: connected, Message: "Storage service connected"}
	if !connected {
		resp.Message = errs.Message(errs.ErrServiceUnreachable)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ExamHandler) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	h.mu.RLock()
	s, ok := h.sessions[r.PathValue("id")]
	h.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: errSessionNotFound.Error()})
	}
	return s, ok
}

func (h *ExamHandler) sessionResponse(s *session) model.SessionResponse {
	st := s.conn.Status()
	s.mu.Lock()
	paper := s.paper
	online := s.storageOnline
	s.mu.Unlock()

	resp := model.SessionResponse{
		ID:              s.id,
		WalletConnected: st.WalletConnected,
		NetworkCorrect:  st.NetworkCorrect,
		ContractReady:   st.ContractReady,
		State:           st.State,
		ChainID:         st.ChainID,
		AccountAddress:  st.AccountAddress,
		LastError:       st.LastError,
		StorageOnline:   online,
		Paper:           &paper,
	}
	if st.AccountAddress != "" {
		if qr, err := common.QRCode(st.AccountAddress); err == nil {
			resp.AccountQR = qr
		} else {
			h.logger.Warn("Failed to render account QR", zap.Error(err))
		}
	}
	return resp
}

func (h *ExamHandler) writeResult(w http.ResponseWriter, res gateway.Result) {
	resp := model.OperationResponse{
		Operation:  string(res.Op),
		Success:    res.OK,
		Message:    res.Message,
		TxHash:     res.TxHash,
		PaperID:    res.PaperID,
		CID:        res.CID,
		GatewayURL: res.GatewayURL,
	}
	if !res.OK {
		resp.Code = string(errs.KindOf(res.Err))
		writeJSON(w, statusFor(res.Err), resp)
		return
	}
	if res.GatewayURL != "" {
		if qr, err := common.QRCode(res.GatewayURL); err == nil {
			resp.QR = qr
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ExamHandler) writeReadError(w http.ResponseWriter, err error) {
	if errs.KindOf(err) == "" {
		h.logger.Warn("Contract read failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}
	writeError(w, statusFor(err), err)
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

