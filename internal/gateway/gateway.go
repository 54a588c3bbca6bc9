package gateway

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/AlexZinkM/exam-admin/internal/common"
	"github.com/AlexZinkM/exam-admin/internal/contract"
	"github.com/AlexZinkM/exam-admin/internal/errs"
	"github.com/AlexZinkM/exam-admin/internal/pinning"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Op names a gateway operation.
type Op string

const (
	OpSetExamTime          Op = "setExamTime"
	OpApprovePaper         Op = "approvePaper"
	OpUploadPaperReference Op = "uploadPaperReference"
	OpProbeStorageService  Op = "probeStorageService"
	OpUploadFile           Op = "uploadFile"
)

var guardedOps = []Op{OpSetExamTime, OpApprovePaper, OpUploadPaperReference, OpUploadFile}

// Connection exposes the contract handle of a ready session. *wallet.Session implements it.
type Connection interface {
	Ready() (handle *contract.Handle, account string, ok bool)
}

// Pinner is the pinning service. *pinning.PinataClient implements it.
type Pinner interface {
	TestAuthentication(ctx context.Context) bool
	PinFile(ctx context.Context, name string, data []byte) (*pinning.PinResponse, error)
	GatewayURL(cid string) string
}

// Observer receives operation outcomes.
type Observer interface {
	Operation(op string, err error)
}

// Result is the outcome of one operation. Message is always set and is what the
// operator sees; Err keeps the classified cause for callers that branch on it.
type Result struct {
	Op         Op
	OK         bool
	Message    string
	TxHash     string
	PaperID    string
	CID        string
	GatewayURL string
	Err        error
}

// Gateway issues one-shot contract and pinning operations for a single session.
type Gateway struct {
	conn     Connection
	pinner   Pinner
	logger   *zap.Logger
	observer Observer
	inFlight map[Op]*atomic.Bool
}

// New creates a gateway bound to conn.
func New(conn Connection, pinner Pinner, logger *zap.Logger, observer Observer) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		conn:     conn,
		pinner:   pinner,
		logger:   logger,
		observer: observer,
		inFlight: make(map[Op]*atomic.Bool, len(guardedOps)),
	}
	for _, op := range guardedOps {
		g.inFlight[op] = new(atomic.Bool)
	}
	return g
}

// SetExamTime schedules paperID to start at startEpochSeconds.
func (g *Gateway) SetExamTime(ctx context.Context, paperID string, startEpochSeconds int64) Result {
	return g.run(OpSetExamTime, func() (Result, error) {
		handle, from, err := g.ready(OpSetExamTime)
		if err != nil {
			return Result{}, err
		}
		id, err := common.ParsePaperID(paperID)
		if err != nil {
			return Result{}, errs.New(errs.KindPreconditionFailed, string(OpSetExamTime), err)
		}
		if startEpochSeconds <= 0 {
			return Result{}, errs.Newf(errs.KindPreconditionFailed, string(OpSetExamTime), "exam date and time are required")
		}

		receipt, err := handle.SetExamTime(ctx, from, id, big.NewInt(startEpochSeconds))
		if err != nil {
			return Result{}, errs.New(errs.KindTransactionFailed, string(OpSetExamTime), err)
		}
		return Result{
			Message: "Exam time set successfully",
			TxHash:  receipt.TxHash.Hex(),
			PaperID: id.String(),
		}, nil
	})
}

// ApprovePaper approves paperID. encryptionKey may be empty.
func (g *Gateway) ApprovePaper(ctx context.Context, paperID, encryptionKey string) Result {
	return g.run(OpApprovePaper, func() (Result, error) {
		handle, from, err := g.ready(OpApprovePaper)
		if err != nil {
			return Result{}, err
		}
		id, err := common.ParsePaperID(paperID)
		if err != nil {
			return Result{}, errs.New(errs.KindPreconditionFailed, string(OpApprovePaper), err)
		}

		receipt, err := handle.ApprovePaper(ctx, from, id, encryptionKey)
		if err != nil {
			return Result{}, errs.New(errs.KindTransactionFailed, string(OpApprovePaper), err)
		}
		return Result{
			Message: "Paper approved successfully",
			TxHash:  receipt.TxHash.Hex(),
			PaperID: id.String(),
		}, nil
	})
}

// UploadPaperReference registers contentReference (a CID from UploadFile) with the contract.
func (g *Gateway) UploadPaperReference(ctx context.Context, contentReference string) Result {
	return g.run(OpUploadPaperReference, func() (Result, error) {
		handle, from, err := g.ready(OpUploadPaperReference)
		if err != nil {
			return Result{}, err
		}
		if contentReference == "" {
			return Result{}, errs.Newf(errs.KindPreconditionFailed, string(OpUploadPaperReference), "no content reference; upload a file first")
		}

		receipt, err := handle.UploadPaper(ctx, from, contentReference)
		if err != nil {
			return Result{}, errs.New(errs.KindTransactionFailed, string(OpUploadPaperReference), err)
		}
		res := Result{
			Message: "Paper uploaded successfully",
			TxHash:  receipt.TxHash.Hex(),
			CID:     contentReference,
		}
		if id, ok := handle.UploadedPaperID(receipt); ok {
			res.PaperID = id.String()
		}
		return res, nil
	})
}

// ProbeStorageService reports whether the pinning service accepts our credentials.
func (g *Gateway) ProbeStorageService(ctx context.Context) bool {
	ok := g.pinner.TestAuthentication(ctx)
	var err error
	if !ok {
		err = errs.Newf(errs.KindServiceUnreachable, string(OpProbeStorageService), "authentication test failed")
	}
	g.observe(OpProbeStorageService, err)
	return ok
}

// UploadFile pins data under fileName and returns its content identifier. Single attempt.
func (g *Gateway) UploadFile(ctx context.Context, data []byte, fileName string) Result {
	return g.run(OpUploadFile, func() (Result, error) {
		if len(data) == 0 {
			return Result{}, errs.Newf(errs.KindPreconditionFailed, string(OpUploadFile), "please select a file first")
		}

		pin, err := g.pinner.PinFile(ctx, fileName, data)
		if err != nil {
			return Result{}, errs.New(errs.KindUploadFailed, string(OpUploadFile), err)
		}
		return Result{
			Message:    "File uploaded successfully! IPFS Hash: " + pin.IpfsHash,
			CID:        pin.IpfsHash,
			GatewayURL: g.pinner.GatewayURL(pin.IpfsHash),
		}, nil
	})
}

// ContractInfo is the registry's public state.
type ContractInfo struct {
	Address    ethcommon.Address
	Admin      ethcommon.Address
	PaperCount *big.Int
}

// Inspect reads the registry's admin and paper count.
func (g *Gateway) Inspect(ctx context.Context) (*ContractInfo, error) {
	handle, _, err := g.ready("inspect")
	if err != nil {
		return nil, err
	}
	admin, err := handle.Admin(ctx)
	if err != nil {
		return nil, err
	}
	count, err := handle.PaperCount(ctx)
	if err != nil {
		return nil, err
	}
	return &ContractInfo{Address: handle.Address(), Admin: admin, PaperCount: count}, nil
}

// Paper reads the stored record of paperID.
func (g *Gateway) Paper(ctx context.Context, paperID string) (*contract.Paper, error) {
	handle, _, err := g.ready("paper")
	if err != nil {
		return nil, err
	}
	id, err := common.ParsePaperID(paperID)
	if err != nil {
		return nil, errs.New(errs.KindPreconditionFailed, "paper", err)
	}
	return handle.Papers(ctx, id)
}

// AccessPaper reads the encryption key of paperID as the connected account.
func (g *Gateway) AccessPaper(ctx context.Context, paperID string) (string, error) {
	handle, from, err := g.ready("accessPaper")
	if err != nil {
		return "", err
	}
	id, err := common.ParsePaperID(paperID)
	if err != nil {
		return "", errs.New(errs.KindPreconditionFailed, "accessPaper", err)
	}
	return handle.AccessPaper(ctx, from, id)
}

func (g *Gateway) ready(op Op) (*contract.Handle, ethcommon.Address, error) {
	handle, account, ok := g.conn.Ready()
	if !ok {
		return nil, ethcommon.Address{}, errs.Newf(errs.KindPreconditionFailed, string(op), "contract not ready; connect the wallet first")
	}
	if !ethcommon.IsHexAddress(account) {
		return nil, ethcommon.Address{}, errs.Newf(errs.KindPreconditionFailed, string(op), "no account connected")
	}
	return handle, ethcommon.HexToAddress(account), nil
}

func (g *Gateway) run(op Op, fn func() (Result, error)) Result {
	flag := g.inFlight[op]
	if !flag.CompareAndSwap(false, true) {
		return g.finish(op, Result{}, errs.Newf(errs.KindOperationInFlight, string(op), "%s already in progress", op))
	}
	defer flag.Store(false)

	res, err := fn()
	return g.finish(op, res, err)
}

func (g *Gateway) finish(op Op, res Result, err error) Result {
	res.Op = op
	if err != nil {
		res.OK = false
		res.Err = err
		res.Message = errs.Message(err)
		g.logger.Warn("Operation failed", zap.String("op", string(op)), zap.Error(err))
	} else {
		res.OK = true
		g.logger.Info("Operation succeeded", zap.String("op", string(op)),
			zap.String("tx", res.TxHash), zap.String("cid", res.CID))
	}
	g.observe(op, err)
	return res
}

func (g *Gateway) observe(op Op, err error) {
	if g.observer != nil {
		g.observer.Operation(string(op), err)
	}
}
