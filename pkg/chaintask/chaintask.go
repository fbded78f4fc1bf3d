package chaintask

import (
	"context"
	"math/big"
	"strings"

	"chaintask-client/pkg/task"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainTaskABI is the fixed interface of the deployed ChainTask contract.
const ChainTaskABI = `[
	{"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"id","type":"uint256"},{"indexed":false,"internalType":"string","name":"content","type":"string"},{"indexed":false,"internalType":"bool","name":"completed","type":"bool"},{"indexed":false,"internalType":"address","name":"owner","type":"address"}],"name":"TaskCreated","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"id","type":"uint256"},{"indexed":false,"internalType":"bool","name":"completed","type":"bool"}],"name":"TaskCompleted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"id","type":"uint256"},{"indexed":false,"internalType":"address","name":"owner","type":"address"}],"name":"TaskDeleted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"id","type":"uint256"},{"indexed":false,"internalType":"string","name":"content","type":"string"},{"indexed":false,"internalType":"address","name":"owner","type":"address"}],"name":"TaskEdited","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"id","type":"uint256"},{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"}],"name":"TaskTransferred","type":"event"},
	{"inputs":[{"internalType":"string","name":"_content","type":"string"}],"name":"createTask","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_id","type":"uint256"}],"name":"deleteTask","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_id","type":"uint256"},{"internalType":"string","name":"_content","type":"string"}],"name":"editTask","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"taskCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"tasks","outputs":[{"internalType":"uint256","name":"id","type":"uint256"},{"internalType":"string","name":"content","type":"string"},{"internalType":"bool","name":"completed","type":"bool"},{"internalType":"address","name":"owner","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_id","type":"uint256"}],"name":"toggleCompleted","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_id","type":"uint256"},{"internalType":"address","name":"_newOwner","type":"address"}],"name":"transferTask","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// TaskRecord mirrors the contract's tasks(uint256) return tuple.
type TaskRecord struct {
	Id        *big.Int
	Content   string
	Completed bool
	Owner     common.Address
}

// ChainTask wraps the deployed contract at a fixed address.
type ChainTask struct {
	address common.Address
	bound   *bind.BoundContract
}

func NewChainTask(address common.Address, backend bind.ContractBackend) (*ChainTask, error) {
	parsed, err := abi.JSON(strings.NewReader(ChainTaskABI))
	if err != nil {
		return nil, err
	}
	return &ChainTask{
		address: address,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (c *ChainTask) Address() common.Address { return c.address }

// TaskCount returns the highest task id ever assigned. Ids are monotonic per
// contract instance; deleted ids leave gaps.
func (c *ChainTask) TaskCount(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := c.bound.Call(opts, &out, "taskCount"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Tasks reads the raw storage slot for a task id. A deleted task reads back
// with a zero id.
func (c *ChainTask) Tasks(opts *bind.CallOpts, id *big.Int) (TaskRecord, error) {
	var out []interface{}
	if err := c.bound.Call(opts, &out, "tasks", id); err != nil {
		return TaskRecord{}, err
	}

	rec := TaskRecord{}
	rec.Id = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	rec.Content = *abi.ConvertType(out[1], new(string)).(*string)
	rec.Completed = *abi.ConvertType(out[2], new(bool)).(*bool)
	rec.Owner = *abi.ConvertType(out[3], new(common.Address)).(*common.Address)
	return rec, nil
}

// ReadTask reads one live record by id. ok is false when the slot was
// deleted or never assigned.
func (c *ChainTask) ReadTask(ctx context.Context, id int64) (task.OnChainTask, bool, error) {
	rec, err := c.Tasks(&bind.CallOpts{Context: ctx}, big.NewInt(id))
	if err != nil {
		return task.OnChainTask{}, false, err
	}
	if rec.Id.Sign() == 0 {
		return task.OnChainTask{}, false, nil
	}
	return task.OnChainTask{
		ID:        rec.Id.Int64(),
		Content:   rec.Content,
		Completed: rec.Completed,
		Owner:     rec.Owner,
	}, true, nil
}

// ListOwnerTasks enumerates the contract by count then index, keeping only
// live records owned by the given address. The result is ordered by
// ascending id, which makes repeated reads over unchanged state stable.
func (c *ChainTask) ListOwnerTasks(ctx context.Context, owner common.Address) ([]task.OnChainTask, error) {
	opts := &bind.CallOpts{Context: ctx, From: owner}

	count, err := c.TaskCount(opts)
	if err != nil {
		return nil, err
	}

	tasks := make([]task.OnChainTask, 0)
	one := big.NewInt(1)
	for id := big.NewInt(1); id.Cmp(count) <= 0; id = new(big.Int).Add(id, one) {
		rec, err := c.Tasks(opts, id)
		if err != nil {
			return nil, err
		}
		if rec.Id.Sign() == 0 || rec.Owner != owner {
			continue
		}
		tasks = append(tasks, task.OnChainTask{
			ID:        rec.Id.Int64(),
			Content:   rec.Content,
			Completed: rec.Completed,
			Owner:     rec.Owner,
		})
	}
	return tasks, nil
}

func (c *ChainTask) CreateTask(opts *bind.TransactOpts, content string) (*types.Transaction, error) {
	return c.bound.Transact(opts, "createTask", content)
}

func (c *ChainTask) EditTask(opts *bind.TransactOpts, id *big.Int, content string) (*types.Transaction, error) {
	return c.bound.Transact(opts, "editTask", id, content)
}

func (c *ChainTask) ToggleCompleted(opts *bind.TransactOpts, id *big.Int) (*types.Transaction, error) {
	return c.bound.Transact(opts, "toggleCompleted", id)
}

func (c *ChainTask) DeleteTask(opts *bind.TransactOpts, id *big.Int) (*types.Transaction, error) {
	return c.bound.Transact(opts, "deleteTask", id)
}

func (c *ChainTask) TransferTask(opts *bind.TransactOpts, id *big.Int, newOwner common.Address) (*types.Transaction, error) {
	return c.bound.Transact(opts, "transferTask", id, newOwner)
}
