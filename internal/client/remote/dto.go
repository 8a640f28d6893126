package remote

import (
	"time"

	"github.com/offlinehq/tidesync/internal/client/models"
)

// credentialsRequest is shared by POST /api/v1/auth/register and /login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenPairResponse carries an issued access/refresh token pair.
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// deltaResponse is returned by GET /api/v1/tables/{table}/records.
type deltaResponse struct {
	Records []models.Record `json:"records"`
	AsOf    time.Time       `json:"as_of"`
}

type presignPutResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type presignGetRequest struct {
	Key string `json:"key"`
}

type presignGetResponse struct {
	URL string `json:"url"`
}

// errorResponse is the server's uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}
