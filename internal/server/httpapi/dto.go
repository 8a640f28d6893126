package httpapi

import (
	"time"

	"github.com/offlinehq/tidesync/internal/server/models"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type deltaResponse struct {
	Records []models.Record `json:"records"`
	AsOf    time.Time       `json:"as_of"`
}

type presignPutResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type presignGetRequest struct {
	Key string `json:"key" binding:"required"`
}

type presignGetResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}
