package grpc

import "time"

type Empty struct{}

// Token is one entry of a listing, with its current code.
type Token struct {
	ID               string `json:"id"`
	Issuer           string `json:"issuer"`
	Name             string `json:"name"`
	Code             string `json:"code,omitempty"`
	NextCode         string `json:"next_code,omitempty"`
	SecondsRemaining int    `json:"seconds_remaining"`
	Error            string `json:"error,omitempty"`
}

type ListTokensRequest struct {
	// Query filters by issuer or name; empty lists everything.
	Query string `json:"query,omitempty"`
}

type ListTokensResponse struct {
	Tokens []Token `json:"tokens"`
}

type AddTokenRequest struct {
	Issuer string `json:"issuer"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type AddTokenResponse struct {
	ID string `json:"id"`
}

type UpdateTokenRequest struct {
	ID     string `json:"id"`
	Issuer string `json:"issuer"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type DeleteTokenRequest struct {
	ID string `json:"id"`
}

type ImportURIRequest struct {
	URI string `json:"uri"`
}

type ImportURIResponse struct {
	Added      int `json:"added"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type CredentialRequest struct {
	Credential string `json:"credential"`
}

type SessionResponse struct {
	Protected bool `json:"protected"`
	// SessionToken is empty when the store is not protected.
	SessionToken string `json:"session_token,omitempty"`
}

type SyncStatusResponse struct {
	OffsetMS        int64     `json:"offset_ms"`
	LastSync        time.Time `json:"last_sync"`
	IntervalSeconds int64     `json:"interval_seconds"`
	Running         bool      `json:"running"`
	Synced          bool      `json:"synced"`
	Syncing         bool      `json:"syncing"`
	// Error is set by SyncNow when no server answered.
	Error string `json:"error,omitempty"`
}
