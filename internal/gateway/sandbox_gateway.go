package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// SandboxGateway issues local order ids without any network call. It is used
// when no gateway URL is configured.
type SandboxGateway struct {
	keyID string
}

func NewSandboxGateway(keyID string) *SandboxGateway {
	return &SandboxGateway{keyID: keyID}
}

func (g *SandboxGateway) KeyID() string {
	return g.keyID
}

func (g *SandboxGateway) CreateOrder(_ context.Context, req OrderRequest) (*Order, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Order{
		ID:       "order_" + id[:14],
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}
