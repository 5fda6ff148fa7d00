package interfaces

import (
	"context"

	"project_greeter/internal/entities"
)

// PlatformClient is one authenticated identity on the messaging platform
type PlatformClient interface {
	Connect(ctx context.Context) error
	IsAuthorized() bool
	Login(ctx context.Context, phone string, op Operator) error
	Resolve(ctx context.Context, handle string) (entities.Peer, error)
	HasConversation(ctx context.Context, peer entities.Peer) (bool, error)
	SendText(ctx context.Context, peer entities.Peer, text string) error
	Disconnect()
}

// Operator receives the out-of-band login material for an account
type Operator interface {
	ShowPairingCode(account, code string)
	ShowQR(account, code string)
	LoginFinished(account string, err error)
}

type RecipientStore interface {
	Load() ([]entities.Recipient, error)
	Remove(r entities.Recipient) error
}

// Console prints operator-facing notifications in a profile color
type Console interface {
	Printf(color, format string, args ...any)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Throttle paces dispatches per account
type Throttle interface {
	Wait(ctx context.Context, account string) error
}
