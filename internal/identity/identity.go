// Package identity issues the anonymous user identity. There are no
// accounts; a process mints one opaque id at first use and keeps it for
// its lifetime.
package identity

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider hands out the process-wide anonymous user id.
type Provider struct {
	namespace string
	logger    *zap.Logger

	once   sync.Once
	userID string
}

func NewProvider(namespace string, logger *zap.Logger) *Provider {
	return &Provider{
		namespace: namespace,
		logger:    logger,
	}
}

// UserID returns the anonymous id, minting it on first call. Every
// subsequent call in the same process returns the same value.
func (p *Provider) UserID() string {
	p.once.Do(func() {
		p.userID = uuid.NewString()
		p.logger.Info("Anonymous identity established",
			zap.String("namespace", p.namespace),
			zap.String("user_id", p.userID),
		)
	})
	return p.userID
}

// Namespace scopes stored data, mirroring a multi-tenant deployment where
// several apps share one database.
func (p *Provider) Namespace() string {
	return p.namespace
}
