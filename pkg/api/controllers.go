package api

import (
	"errors"
	"net/http"
	"strconv"

	"chaintask-client/pkg/app"
	"chaintask-client/pkg/backend"
	"chaintask-client/pkg/task"
	"chaintask-client/pkg/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handlers exposes the client over HTTP for local frontends. Every handler
// delegates to the app; no state lives here.
type Handlers struct {
	app *app.App
}

func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Identity string `json:"identity"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createTaskRequest struct {
	Content  string        `json:"content"`
	DueDate  *task.Date    `json:"dueDate,omitempty"`
	Priority task.Priority `json:"priority,omitempty"`
	Status   task.Status   `json:"status,omitempty"`
	Category string        `json:"category,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
}

type editTaskRequest struct {
	Content string `json:"content"`
}

type transferTaskRequest struct {
	NewOwner string `json:"newOwner"`
}

type sessionResponse struct {
	Identity      string `json:"identity"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

func (h *Handlers) LoginController(c *gin.Context) {
	var req loginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("Invalid request body"))
		return
	}

	sess, err := h.app.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Login failed")
		c.JSON(errorStatus(err), defaultErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse(sessionResponse{Identity: sess.Identity, WalletAddress: sess.WalletAddress}))
}

func (h *Handlers) RegisterController(c *gin.Context) {
	var req registerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("Invalid request body"))
		return
	}

	if err := h.app.Register(c.Request.Context(), req.Identity, req.Email, req.Password); err != nil {
		log.Error().Err(err).Msg("Registration failed")
		c.JSON(errorStatus(err), defaultErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse("registered"))
}

func (h *Handlers) LogoutController(c *gin.Context) {
	if err := h.app.Logout(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Logout failed")
		c.JSON(http.StatusInternalServerError, defaultErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse("logged out"))
}

func (h *Handlers) SessionController(c *gin.Context) {
	sess := h.app.Session()
	if sess == nil {
		c.JSON(http.StatusOK, defaultSuccessResponse(nil))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse(sessionResponse{
		Identity:      sess.Identity,
		WalletAddress: h.app.WalletAddress(),
	}))
}

func (h *Handlers) ConnectWalletController(c *gin.Context) {
	address, err := h.app.ConnectWallet(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Wallet connect failed")
		c.JSON(errorStatus(err), defaultErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse(gin.H{"walletAddress": address}))
}

func (h *Handlers) DisconnectWalletController(c *gin.Context) {
	h.app.DisconnectWallet(c.Request.Context())
	c.JSON(http.StatusOK, defaultSuccessResponse("disconnected"))
}

// GetTasksController serves the filtered view. With refresh=true it
// reconciles against both sources first; otherwise it reads the snapshot.
func (h *Handlers) GetTasksController(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if _, err := h.app.Fetch(c.Request.Context()); err != nil {
			log.Error().Err(err).Msg("Task fetch failed")
			c.JSON(errorStatus(err), defaultErrorResponse(err.Error()))
			return
		}
	}

	filter := task.Filter{
		Query:    c.Query("query"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Tag:      c.Query("tag"),
		Due:      task.DueBucket(c.Query("due")),
	}
	if filter.Due != "" && !filter.Due.Valid() {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("invalid due bucket"))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse(h.app.View(filter)))
}

func (h *Handlers) GetTaskByIdController(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	t, found := h.app.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, defaultErrorResponse((&task.NotFoundError{ID: id}).Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse(t))
}

func (h *Handlers) CreateTaskController(c *gin.Context) {
	var req createTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("Invalid request body"))
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("content is required"))
		return
	}

	draft := &task.MetadataDraft{
		Content:  req.Content,
		DueDate:  req.DueDate,
		Priority: req.Priority,
		Status:   req.Status,
		Category: req.Category,
		Tags:     req.Tags,
	}
	h.submit(c, task.CreateOp(req.Content, draft))
}

func (h *Handlers) EditTaskController(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req editTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("Invalid request body"))
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("content is required"))
		return
	}
	h.submit(c, task.EditOp(id, req.Content))
}

func (h *Handlers) ToggleTaskController(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	h.submit(c, task.ToggleOp(id))
}

func (h *Handlers) DeleteTaskController(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	h.submit(c, task.DeleteOp(id))
}

func (h *Handlers) TransferTaskController(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req transferTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("Invalid request body"))
		return
	}
	if !common.IsHexAddress(req.NewOwner) {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("newOwner must be a hex address"))
		return
	}
	h.submit(c, task.TransferOp(id, common.HexToAddress(req.NewOwner)))
}

func (h *Handlers) PatchMetadataController(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var patch task.MetadataPatch
	if err := c.BindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("Invalid request body"))
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("invalid status"))
		return
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("invalid priority"))
		return
	}

	if err := h.app.PatchMetadata(c.Request.Context(), id, patch); err != nil {
		log.Error().Err(err).Int64("taskId", id).Msg("Metadata patch failed")
		c.JSON(errorStatus(err), defaultErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse("updated"))
}

func (h *Handlers) GetNotificationsController(c *gin.Context) {
	c.JSON(http.StatusOK, defaultSuccessResponse(h.app.Notifier().Recent()))
}

func (h *Handlers) submit(c *gin.Context, op task.Operation) {
	result, err := h.app.Submit(c.Request.Context(), op)
	if err != nil {
		log.Error().Err(err).Str("op", string(op.Kind)).Msg("Task submission failed")
		c.JSON(errorStatus(err), defaultErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, defaultSuccessResponse(result))
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("task-id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, defaultErrorResponse("invalid task id"))
		return 0, false
	}
	return id, true
}

// errorStatus maps client error types to HTTP statuses for the gateway.
func errorStatus(err error) int {
	var authErr *backend.AuthError
	var walletErr *wallet.WalletError
	var txErr *task.TxError
	var syncErr *task.MetadataSyncError

	switch {
	case errors.As(err, &authErr), errors.Is(err, app.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrNotConnected):
		return http.StatusPreconditionFailed
	case errors.As(err, &walletErr):
		return http.StatusFailedDependency
	case errors.As(err, &txErr):
		if txErr.Kind == task.TxReverted {
			return http.StatusConflict
		}
		return http.StatusBadGateway
	case errors.As(err, &syncErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
