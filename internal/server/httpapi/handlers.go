// Package httpapi exposes the server over HTTP: auth, record upserts,
// owner-scoped delta reads, the websocket change feed, and attachment
// presigning.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offlinehq/tidesync/internal/common"
	"github.com/offlinehq/tidesync/internal/logging"
	"github.com/offlinehq/tidesync/internal/server/models"
	"github.com/offlinehq/tidesync/internal/server/services"
)

// UserService is the slice of services.UserService the handlers need.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type RecordService interface {
	Upsert(ctx context.Context, owner, table string, rec *models.Record) error
	SelectUpdatedSince(ctx context.Context, owner, table string, since time.Time) ([]models.Record, error)
	Search(ctx context.Context, owner, table, text string) ([]models.Record, error)
}

type AttachmentService interface {
	GetPresignedPutUrl(ctx context.Context) (string, string, error)
	GetPresignedGetUrl(ctx context.Context, key string) (string, error)
}

type Handlers struct {
	users       UserService
	records     RecordService
	attachments AttachmentService
	logger      logging.Logger
}

func NewHandlers(users UserService, records RecordService, attachments AttachmentService, logger logging.Logger) *Handlers {
	return &Handlers{users: users, records: records, attachments: attachments, logger: logger}
}

func (h *Handlers) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.users.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		h.logger.Warn(c.Request.Context(), "registration failed", "username", req.Username, "error", err)
		c.JSON(http.StatusConflict, errorResponse{Error: "registration failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handlers) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pair, err := h.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// upsertRecord applies one pushed mutation. The path id wins over the
// payload id and the token owner wins over the payload owner.
func (h *Handlers) upsertRecord(c *gin.Context) {
	var rec models.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	rec.ID = c.Param("id")
	table := c.Param("table")

	err := h.records.Upsert(c.Request.Context(), ownerFrom(c), table, &rec)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusForbidden, errorResponse{Error: "record belongs to another owner"})
			return
		}
		h.logger.Error(c.Request.Context(), "upsert failed", "table", table, "id", rec.ID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listRecords serves both the delta read (?since=...) and the remote
// search (?q=...). Without parameters it returns the owner's full table.
func (h *Handlers) listRecords(c *gin.Context) {
	owner := ownerFrom(c)
	table := c.Param("table")

	var (
		recs []models.Record
		err  error
	)
	if q := c.Query("q"); q != "" {
		recs, err = h.records.Search(c.Request.Context(), owner, table, q)
	} else {
		var since time.Time
		if raw := c.Query("since"); raw != "" {
			since, err = time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid since parameter"})
				return
			}
		}
		recs, err = h.records.SelectUpdatedSince(c.Request.Context(), owner, table, since)
	}
	if err != nil {
		h.logger.Error(c.Request.Context(), "record select failed", "table", table, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if recs == nil {
		recs = []models.Record{}
	}
	c.JSON(http.StatusOK, deltaResponse{Records: recs, AsOf: time.Now().UTC()})
}

func (h *Handlers) presignPut(c *gin.Context) {
	key, url, err := h.attachments.GetPresignedPutUrl(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "presign failed"})
		return
	}
	c.JSON(http.StatusOK, presignPutResponse{Key: key, URL: url})
}

func (h *Handlers) presignGet(c *gin.Context) {
	var req presignGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	url, err := h.attachments.GetPresignedGetUrl(c.Request.Context(), req.Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "presign failed"})
		return
	}
	c.JSON(http.StatusOK, presignGetResponse{URL: url})
}
