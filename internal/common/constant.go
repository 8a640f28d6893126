package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on outbound requests.
const AccessTokenHeaderName = "Authorization"

// TokenExpiredMessage is the response body marker the server sends when an
// access token is syntactically valid but past its expiry. The client's
// refresh flow keys off this value.
const TokenExpiredMessage = "token expired"
