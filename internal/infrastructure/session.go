package infrastructure

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"project_greeter/internal/interfaces"
)

// LoginSession tracks the pairing state of one account
type LoginSession struct {
	Account     string
	PairingCode string
	QRCode      string
	Done        bool
	Err         error
	UpdatedAt   time.Time
}

// LoginSessionManager is the Operator shown to the platform clients during
// pairing. It prints codes to the console, writes QR codes as PNG files and
// keeps the latest state for the status server.
type LoginSessionManager struct {
	sessions map[string]*LoginSession
	mu       sync.RWMutex

	console interfaces.Console
	colors  map[string]string
	qrDir   string
	logger  zerolog.Logger
}

var _ interfaces.Operator = (*LoginSessionManager)(nil)

func NewLoginSessionManager(console interfaces.Console, qrDir string, logger zerolog.Logger) *LoginSessionManager {
	return &LoginSessionManager{
		sessions: make(map[string]*LoginSession),
		console:  console,
		colors:   make(map[string]string),
		qrDir:    qrDir,
		logger:   logger,
	}
}

// SetColor sets the console color used for an account's login prompts
func (m *LoginSessionManager) SetColor(account, color string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colors[account] = color
}

func (m *LoginSessionManager) getOrCreate(account string) *LoginSession {
	session, exists := m.sessions[account]
	if !exists {
		session = &LoginSession{Account: account}
		m.sessions[account] = session
	}
	return session
}

func (m *LoginSessionManager) color(account string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.colors[account]
}

func (m *LoginSessionManager) ShowPairingCode(account, code string) {
	m.mu.Lock()
	s := m.getOrCreate(account)
	s.PairingCode = code
	s.UpdatedAt = time.Now()
	m.mu.Unlock()

	m.console.Printf(m.color(account), "🔐 %s - Not authorized. Enter this code on the phone (Linked devices → Link with phone number): %s", account, code)
}

func (m *LoginSessionManager) ShowQR(account, code string) {
	m.mu.Lock()
	s := m.getOrCreate(account)
	s.QRCode = code
	s.UpdatedAt = time.Now()
	m.mu.Unlock()

	if m.qrDir == "" {
		m.console.Printf(m.color(account), "🔐 %s - Not authorized. Scan this QR code: %s", account, code)
		return
	}

	path := filepath.Join(m.qrDir, account+".qr.png")
	if err := qrcode.WriteFile(code, qrcode.Medium, 256, path); err != nil {
		m.logger.Error().Err(err).Str("account", account).Msg("failed to write QR code")
		m.console.Printf(m.color(account), "🔐 %s - Not authorized. Scan this QR code: %s", account, code)
		return
	}
	m.console.Printf(m.color(account), "🔐 %s - Not authorized. Scan the QR code saved at %s", account, path)
}

func (m *LoginSessionManager) LoginFinished(account string, err error) {
	m.mu.Lock()
	s := m.getOrCreate(account)
	s.Done = err == nil
	s.Err = err
	s.PairingCode = ""
	s.QRCode = ""
	s.UpdatedAt = time.Now()
	m.mu.Unlock()

	if err != nil {
		m.console.Printf(m.color(account), "⚠️ %s - Login failed: %v", account, err)
		return
	}
	m.console.Printf(m.color(account), "✅ %s - Device linked", account)
}

// Get returns a copy of the account's login state
func (m *LoginSessionManager) Get(account string) (LoginSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[account]
	if !ok {
		return LoginSession{}, false
	}
	return *s, true
}

// QRPNG renders the account's pending QR code
func (m *LoginSessionManager) QRPNG(account string) ([]byte, error) {
	s, ok := m.Get(account)
	if !ok || s.QRCode == "" {
		return nil, fmt.Errorf("no pending QR code for %s", account)
	}
	return qrcode.Encode(s.QRCode, qrcode.Medium, 256)
}
