package striperepo

import "context"

type CreateSessionReq struct {
	Name        string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type CreateSessionResp struct {
	SessionID  string
	SessionURL string
}

type SessionStatus struct {
	PaymentStatus string
}

// Repo is the payment gateway boundary: one call to open a checkout
// session, one to pull its status back.
type Repo interface {
	CreateSession(ctx context.Context, req CreateSessionReq) (*CreateSessionResp, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}
