package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"project_greeter/internal/entities"
)

// WhatsAppManager owns one WhatsApp client per sender profile
type WhatsAppManager struct {
	clients map[string]*WhatsAppClient
	order   []string
	mu      sync.RWMutex

	sessionDir      string
	loginMethod     string
	rateLimitWait   time.Duration
	historySyncWait time.Duration
	logger          zerolog.Logger
}

func NewWhatsAppManager(sessionDir, loginMethod string, rateLimitWait, historySyncWait time.Duration, logger zerolog.Logger) *WhatsAppManager {
	return &WhatsAppManager{
		clients:         make(map[string]*WhatsAppClient),
		sessionDir:      sessionDir,
		loginMethod:     loginMethod,
		rateLimitWait:   rateLimitWait,
		historySyncWait: historySyncWait,
		logger:          logger,
	}
}

// GetClient returns the client for an account (nil if not created)
func (m *WhatsAppManager) GetClient(account string) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[account]
}

// GetOrCreateClient opens the session store for a profile
func (m *WhatsAppManager) GetOrCreateClient(ctx context.Context, profile entities.Profile) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[profile.Name]; exists {
		return client, nil
	}

	client, err := NewWhatsAppClient(ctx, WhatsAppOptions{
		Account:         profile.Name,
		SessionDir:      m.sessionDir,
		SessionName:     profile.SessionName,
		LoginMethod:     m.loginMethod,
		RateLimitWait:   m.rateLimitWait,
		HistorySyncWait: m.historySyncWait,
		Logger:          m.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp client for %s: %w", profile.Name, err)
	}

	m.clients[profile.Name] = client
	m.order = append(m.order, profile.Name)
	return client, nil
}

// DisconnectAll disconnects all clients (for graceful shutdown)
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.order {
		m.clients[name].Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
	m.order = nil
}
