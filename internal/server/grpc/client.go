package grpc

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

// Client is a typed client for the OTP service. It keeps the session token
// returned by Verify, SetPIN and SetPassword and sends it with every call.
type Client struct {
	conn grpc.ClientConnInterface

	mu           sync.Mutex
	sessionToken string
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial connects to a daemon over plaintext TCP. The daemon is meant to
// listen on loopback only.
func Dial(endpointURL string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func (c *Client) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

func (c *Client) setSessionToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = tok
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if tok := c.SessionToken(); tok != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.SessionTokenHeaderName, tok)
	}
	return c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(codecName))
}

func (c *Client) ListTokens(ctx context.Context, query string) ([]Token, error) {
	out := &ListTokensResponse{}
	if err := c.invoke(ctx, "ListTokens", &ListTokensRequest{Query: query}, out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

func (c *Client) AddToken(ctx context.Context, issuer, name, secret string) (string, error) {
	out := &AddTokenResponse{}
	if err := c.invoke(ctx, "AddToken", &AddTokenRequest{Issuer: issuer, Name: name, Secret: secret}, out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) UpdateToken(ctx context.Context, id, issuer, name, secret string) error {
	return c.invoke(ctx, "UpdateToken", &UpdateTokenRequest{ID: id, Issuer: issuer, Name: name, Secret: secret}, &Empty{})
}

func (c *Client) DeleteToken(ctx context.Context, id string) error {
	return c.invoke(ctx, "DeleteToken", &DeleteTokenRequest{ID: id}, &Empty{})
}

func (c *Client) ImportURI(ctx context.Context, uri string) (*ImportURIResponse, error) {
	out := &ImportURIResponse{}
	if err := c.invoke(ctx, "ImportURI", &ImportURIRequest{URI: uri}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify opens a session and remembers its token.
func (c *Client) Verify(ctx context.Context, credential string) (bool, error) {
	return c.credentialCall(ctx, "Verify", credential)
}

func (c *Client) SetPIN(ctx context.Context, pin string) error {
	_, err := c.credentialCall(ctx, "SetPIN", pin)
	return err
}

func (c *Client) SetPassword(ctx context.Context, password string) error {
	_, err := c.credentialCall(ctx, "SetPassword", password)
	return err
}

func (c *Client) credentialCall(ctx context.Context, method, credential string) (bool, error) {
	out := &SessionResponse{}
	if err := c.invoke(ctx, method, &CredentialRequest{Credential: credential}, out); err != nil {
		return false, err
	}
	c.setSessionToken(out.SessionToken)
	return out.Protected, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.invoke(ctx, "Logout", &Empty{}, &Empty{})
	c.setSessionToken("")
	return err
}

func (c *Client) DisableProtection(ctx context.Context, credential string) error {
	if err := c.invoke(ctx, "DisableProtection", &CredentialRequest{Credential: credential}, &Empty{}); err != nil {
		return err
	}
	c.setSessionToken("")
	return nil
}

func (c *Client) SyncStatus(ctx context.Context) (*SyncStatusResponse, error) {
	out := &SyncStatusResponse{}
	if err := c.invoke(ctx, "SyncStatus", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SyncNow(ctx context.Context) (*SyncStatusResponse, error) {
	out := &SyncStatusResponse{}
	if err := c.invoke(ctx, "SyncNow", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}
