package task

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"chaintask-client/pkg/notify"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// OpKind names a mutating contract operation.
type OpKind string

const (
	OpCreate   OpKind = "create"
	OpEdit     OpKind = "edit"
	OpToggle   OpKind = "toggle"
	OpDelete   OpKind = "delete"
	OpTransfer OpKind = "transfer"
)

// Operation is one task mutation to submit on-chain.
type Operation struct {
	Kind     OpKind
	ID       int64
	Content  string
	NewOwner common.Address
	// Draft carries user-supplied metadata for create operations.
	Draft *MetadataDraft
}

func CreateOp(content string, draft *MetadataDraft) Operation {
	return Operation{Kind: OpCreate, Content: content, Draft: draft}
}

func EditOp(id int64, content string) Operation {
	return Operation{Kind: OpEdit, ID: id, Content: content}
}

func ToggleOp(id int64) Operation { return Operation{Kind: OpToggle, ID: id} }

func DeleteOp(id int64) Operation { return Operation{Kind: OpDelete, ID: id} }

func TransferOp(id int64, newOwner common.Address) Operation {
	return Operation{Kind: OpTransfer, ID: id, NewOwner: newOwner}
}

// Contract is the mutating call surface of the ChainTask contract.
type Contract interface {
	CreateTask(opts *bind.TransactOpts, content string) (*types.Transaction, error)
	EditTask(opts *bind.TransactOpts, id *big.Int, content string) (*types.Transaction, error)
	ToggleCompleted(opts *bind.TransactOpts, id *big.Int) (*types.Transaction, error)
	DeleteTask(opts *bind.TransactOpts, id *big.Int) (*types.Transaction, error)
	TransferTask(opts *bind.TransactOpts, id *big.Int, newOwner common.Address) (*types.Transaction, error)
}

// Signer supplies transact options bound to the connected account and waits
// for broadcast transactions to be mined.
type Signer interface {
	TransactOpts(ctx context.Context) *bind.TransactOpts
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Result describes a confirmed submission.
type Result struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	GasCost     string `json:"gasCost"`
}

// Submitter drives the on-chain-then-off-chain write sequence. All mutating
// operations are serialized per task id through keyed locks, so two
// different operation kinds can never race on the same task; creates
// serialize among themselves.
type Submitter struct {
	contract    Contract
	signer      Signer
	svc         *Service
	notifier    *notify.Notifier
	explorerURL string
	symbol      string

	// OnTaskUpdated is invoked after every confirmed transaction; the app
	// wires it to a re-fetch so every consumer of the view converges.
	OnTaskUpdated func()

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewSubmitter(contract Contract, signer Signer, svc *Service, n *notify.Notifier, explorerURL string, symbol string) *Submitter {
	return &Submitter{
		contract:    contract,
		signer:      signer,
		svc:         svc,
		notifier:    n,
		explorerURL: explorerURL,
		symbol:      symbol,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// Submit sends the contract call, surfaces the pending hash immediately,
// waits for confirmation, and then brings the off-chain metadata in line for
// operations that have a counterpart. A failed metadata write after a
// confirmed transaction is queued for repair and reported; the on-chain
// effect is never undone.
func (s *Submitter) Submit(ctx context.Context, op Operation) (*Result, error) {
	unlock := s.lockFor(op.ID)
	defer unlock()

	opts := s.signer.TransactOpts(ctx)
	tx, err := s.dispatch(opts, op)
	if err != nil {
		txErr := classifySendError(err)
		s.notifier.Error(txErr.Error())
		return nil, txErr
	}

	s.notifier.PendingTx(tx.Hash().Hex(), s.explorerURL)

	receipt, err := s.signer.WaitMined(ctx, tx)
	if err != nil {
		txErr := &TxError{Kind: TxRejected, Hash: tx.Hash().Hex(), Err: err}
		s.notifier.Error(txErr.Error())
		return nil, txErr
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		txErr := &TxError{Kind: TxReverted, Hash: tx.Hash().Hex(), Reason: "reverted on-chain"}
		s.notifier.Error(txErr.Error())
		return nil, txErr
	}

	cost := gasCost(tx, receipt)
	s.notifier.ConfirmedTx(tx.Hash().Hex(), cost+" "+s.symbol)

	s.svc.Invalidate(ctx)
	s.syncMetadata(ctx, op)
	if s.OnTaskUpdated != nil {
		s.OnTaskUpdated()
	}

	return &Result{
		TxHash:      tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasCost:     cost + " " + s.symbol,
	}, nil
}

func (s *Submitter) dispatch(opts *bind.TransactOpts, op Operation) (*types.Transaction, error) {
	switch op.Kind {
	case OpCreate:
		return s.contract.CreateTask(opts, op.Content)
	case OpEdit:
		return s.contract.EditTask(opts, big.NewInt(op.ID), op.Content)
	case OpToggle:
		return s.contract.ToggleCompleted(opts, big.NewInt(op.ID))
	case OpDelete:
		return s.contract.DeleteTask(opts, big.NewInt(op.ID))
	case OpTransfer:
		return s.contract.TransferTask(opts, big.NewInt(op.ID), op.NewOwner)
	}
	return nil, &TxError{Kind: TxRejected, Reason: "unknown operation " + string(op.Kind)}
}

func (s *Submitter) syncMetadata(ctx context.Context, op Operation) {
	switch op.Kind {
	case OpCreate:
		draft := MetadataDraft{Content: op.Content, Status: DefaultStatus, Priority: DefaultPriority}
		if op.Draft != nil {
			draft = *op.Draft
			draft.Content = op.Content
			if !draft.Status.Valid() {
				draft.Status = DefaultStatus
			}
			if !draft.Priority.Valid() {
				draft.Priority = DefaultPriority
			}
		}
		if err := s.svc.meta.CreateTaskMetadata(ctx, draft); err != nil {
			s.svc.RecordPendingDraft(draft)
			s.notifier.DivergenceAlert(0, &MetadataSyncError{Err: err})
		}
	case OpToggle:
		// the confirmed chain record is authoritative for the new state, so
		// the patch never depends on having fetched a snapshot first
		rec, ok, err := s.svc.chain.ReadTask(ctx, op.ID)
		if err != nil {
			s.svc.RecordPendingSync(op.ID)
			s.notifier.DivergenceAlert(op.ID, &MetadataSyncError{TaskID: op.ID, Err: err})
			return
		}
		if !ok {
			// deleted in the meantime; the merge discards its metadata
			return
		}
		status := StatusPending
		if rec.Completed {
			status = StatusCompleted
		}
		patch := MetadataPatch{Status: &status}
		if err := s.svc.meta.PatchTaskMetadata(ctx, op.ID, patch); err != nil {
			s.svc.RecordPending(op.ID, patch)
			s.notifier.DivergenceAlert(op.ID, &MetadataSyncError{TaskID: op.ID, Err: err})
		}
	}
}

// lockFor serializes submissions per task id. Creates, which have no id yet,
// share the zero key.
func (s *Submitter) lockFor(id int64) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func classifySendError(err error) *TxError {
	msg := err.Error()
	if strings.Contains(msg, "execution reverted") {
		return &TxError{Kind: TxReverted, Reason: msg, Err: err}
	}
	return &TxError{Kind: TxRejected, Reason: msg, Err: err}
}

func gasCost(tx *types.Transaction, receipt *types.Receipt) string {
	price := receipt.EffectiveGasPrice
	if price == nil {
		price = tx.GasPrice()
	}
	wei := new(big.Int).Mul(price, new(big.Int).SetUint64(receipt.GasUsed))
	return decimal.NewFromBigInt(wei, -18).String()
}
