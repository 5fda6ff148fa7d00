package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"project_greeter/internal/entities"
	"project_greeter/internal/interfaces"
	"project_greeter/internal/repository"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	LoginMethodCode = "code"
	LoginMethodQR   = "qr"
)

type WhatsAppOptions struct {
	Account       string
	SessionDir    string
	SessionName   string
	LoginMethod   string
	RateLimitWait time.Duration // used when the server throttles without saying for how long
	// HistorySyncWait bounds how long a fresh pairing waits for the first
	// history batch; 0 disables the wait
	HistorySyncWait time.Duration
	Logger          zerolog.Logger
}

// lidMapper translates between the phone-number and LID addresses of a user
type lidMapper interface {
	GetPNForLID(ctx context.Context, lid types.JID) (types.JID, error)
	GetLIDForPN(ctx context.Context, pn types.JID) (types.JID, error)
}

// WhatsAppClient is one linked WhatsApp device used as a sender identity
type WhatsAppClient struct {
	Client *whatsmeow.Client

	account         string
	loginMethod     string
	rateLimitWait   time.Duration
	historySyncWait time.Duration
	conversations   *repository.ConversationRepository
	lids            lidMapper
	logger          zerolog.Logger

	synced     chan struct{} // closed once the first history batch is indexed
	syncedOnce sync.Once
}

var _ interfaces.PlatformClient = (*WhatsAppClient)(nil)

func NewWhatsAppClient(ctx context.Context, opts WhatsAppOptions) (*WhatsAppClient, error) {
	if err := os.MkdirAll(opts.SessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	// Device keys live in <session>.db, our conversation index next to it
	dbPath := filepath.Join(opts.SessionDir, opts.SessionName+".db")
	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", PlatformLogger(opts.Logger, opts.Account, "Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	conversations, err := repository.NewConversationRepository(filepath.Join(opts.SessionDir, opts.SessionName+".history.db"))
	if err != nil {
		return nil, err
	}

	method := opts.LoginMethod
	if method == "" {
		method = LoginMethodCode
	}

	w := &WhatsAppClient{
		Client:          whatsmeow.NewClient(deviceStore, PlatformLogger(opts.Logger, opts.Account, "Client")),
		account:         opts.Account,
		loginMethod:     method,
		rateLimitWait:   opts.RateLimitWait,
		historySyncWait: opts.HistorySyncWait,
		conversations:   conversations,
		logger:          opts.Logger.With().Str("account", opts.Account).Logger(),
		synced:          make(chan struct{}),
	}
	if deviceStore.LIDs != nil {
		w.lids = deviceStore.LIDs
	}
	w.Client.AddEventHandler(w.handleEvent)
	return w, nil
}

func (w *WhatsAppClient) IsAuthorized() bool {
	return w.Client.Store.ID != nil
}

// Connect resumes a stored session. Unpaired devices must go through Login.
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if !w.IsAuthorized() {
		return entities.ErrNotAuthorized
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.Client.Connect()
}

// Login pairs a new device. With the code method the operator types the
// returned pairing code on the phone; with the QR method they scan it.
func (w *WhatsAppClient) Login(ctx context.Context, phone string, op interfaces.Operator) error {
	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return err
	}

	pairingRequested := false
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			if w.loginMethod == LoginMethodQR {
				op.ShowQR(w.account, evt.Code)
				continue
			}
			if pairingRequested {
				continue
			}
			code, err := w.Client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
			if err != nil {
				return w.failLogin(op, fmt.Errorf("failed to request pairing code: %w", err))
			}
			pairingRequested = true
			op.ShowPairingCode(w.account, code)
		case "success":
			op.LoginFinished(w.account, nil)
			// A new device has an empty index until the first history batch
			if w.historySyncWait > 0 {
				if w.waitForHistory(ctx, w.historySyncWait) {
					w.logger.Info().Msg("initial history indexed")
				} else if err := ctx.Err(); err != nil {
					return err
				} else {
					w.logger.Warn().Dur("waited", w.historySyncWait).Msg("history sync did not arrive in time")
				}
			}
			return nil
		case "timeout":
			return w.failLogin(op, entities.ErrLoginTimeout)
		default:
			if evt.Error != nil {
				return w.failLogin(op, fmt.Errorf("login failed: %w", evt.Error))
			}
			return w.failLogin(op, fmt.Errorf("login failed: %s", evt.Event))
		}
	}

	// Channel closes without an event when ctx is cancelled
	if err := ctx.Err(); err != nil {
		return w.failLogin(op, err)
	}
	return w.failLogin(op, entities.ErrLoginTimeout)
}

func (w *WhatsAppClient) failLogin(op interfaces.Operator, err error) error {
	w.Client.Disconnect()
	op.LoginFinished(w.account, err)
	return err
}

// Resolve turns a queued handle into a JID. Phone numbers are checked
// against the platform; full JIDs are taken as-is.
func (w *WhatsAppClient) Resolve(ctx context.Context, handle string) (entities.Peer, error) {
	h := strings.TrimSpace(handle)
	if strings.Contains(h, "@") {
		jid, err := types.ParseJID(h)
		if err != nil {
			return entities.Peer{}, fmt.Errorf("%w: %v", entities.ErrRecipientNotFound, err)
		}
		return entities.Peer{Handle: handle, ID: jid.ToNonAD().String()}, nil
	}

	phone := repository.NormalizePhone(h)
	if phone == "" {
		return entities.Peer{}, fmt.Errorf("%w: invalid number %q", entities.ErrRecipientNotFound, handle)
	}

	resp, err := w.Client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return entities.Peer{}, fmt.Errorf("failed to look up %s: %w", handle, err)
	}
	for _, r := range resp {
		if r.IsIn {
			return entities.Peer{Handle: handle, ID: r.JID.ToNonAD().String()}, nil
		}
	}
	return entities.Peer{}, fmt.Errorf("%w: %s", entities.ErrRecipientNotFound, handle)
}

// waitForHistory reports whether the first history batch was indexed before
// the wait elapsed or ctx was done
func (w *WhatsAppClient) waitForHistory(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-w.synced:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (w *WhatsAppClient) markSynced() {
	w.syncedOnce.Do(func() {
		if w.synced != nil {
			close(w.synced)
		}
	})
}

// HasConversation looks the chat up by phone JID, then by the user's LID for
// chats that could not be mapped back to a phone number when indexed.
func (w *WhatsAppClient) HasConversation(ctx context.Context, peer entities.Peer) (bool, error) {
	ok, err := w.conversations.Exists(ctx, peer.ID)
	if err != nil || ok || w.lids == nil {
		return ok, err
	}

	pn, err := types.ParseJID(peer.ID)
	if err != nil || pn.Server != types.DefaultUserServer {
		return false, nil
	}
	lid, err := w.lids.GetLIDForPN(ctx, pn)
	if err != nil {
		w.logger.Warn().Err(err).Str("chat", peer.ID).Msg("failed to look up LID")
		return false, nil
	}
	if lid.IsEmpty() {
		return false, nil
	}
	return w.conversations.Exists(ctx, lid.ToNonAD().String())
}

func (w *WhatsAppClient) SendText(ctx context.Context, peer entities.Peer, text string) error {
	jid, err := types.ParseJID(peer.ID)
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &text,
	})
	if err != nil {
		if isRateLimited(err) {
			return &entities.RateLimitError{Wait: w.rateLimitWait, Err: err}
		}
		return err
	}

	if err := w.conversations.Record(ctx, peer.ID, time.Now()); err != nil {
		w.logger.Warn().Err(err).Str("chat", peer.ID).Msg("failed to record sent conversation")
	}
	return nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, whatsmeow.ErrIQRateOverLimit) || errors.Is(err, whatsmeow.ErrIQResourceLimit)
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
	if err := w.conversations.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to close conversation index")
	}
}

// handleEvent feeds the conversation index from live and history-sync
// messages. Chats are keyed by phone JID whenever the LID can be mapped.
func (w *WhatsAppClient) handleEvent(evt interface{}) {
	ctx := context.Background()
	switch v := evt.(type) {
	case *events.Message:
		if v.Info.IsGroup {
			return
		}
		w.record(w.messageChat(ctx, v.Info).String(), v.Info.Timestamp)
	case *events.HistorySync:
		for _, conv := range v.Data.GetConversations() {
			jid, err := types.ParseJID(conv.GetID())
			if err != nil || !isDirectChat(jid) {
				continue
			}
			if jid.Server == types.HiddenUserServer {
				jid = w.historyChat(ctx, jid, conv)
			}
			w.record(jid.ToNonAD().String(), time.Now())
		}
		switch v.Data.GetSyncType() {
		case waHistorySync.HistorySync_INITIAL_BOOTSTRAP, waHistorySync.HistorySync_RECENT, waHistorySync.HistorySync_FULL:
			w.markSynced()
		}
	}
}

func isDirectChat(jid types.JID) bool {
	return jid.Server == types.DefaultUserServer || jid.Server == types.HiddenUserServer
}

// messageChat returns the phone JID of a direct chat. LID-addressed messages
// carry it in SenderAlt, or RecipientAlt for our own messages.
func (w *WhatsAppClient) messageChat(ctx context.Context, info types.MessageInfo) types.JID {
	chat := info.Chat.ToNonAD()
	if chat.Server != types.HiddenUserServer {
		return chat
	}
	alt := info.SenderAlt
	if info.IsFromMe {
		alt = info.RecipientAlt
	}
	if alt.Server == types.DefaultUserServer {
		return alt.ToNonAD()
	}
	return w.phoneForLID(ctx, chat)
}

func (w *WhatsAppClient) historyChat(ctx context.Context, lid types.JID, conv *waHistorySync.Conversation) types.JID {
	if raw := conv.GetPnJID(); raw != "" {
		if pn, err := types.ParseJID(raw); err == nil && pn.Server == types.DefaultUserServer {
			return pn
		}
	}
	return w.phoneForLID(ctx, lid)
}

// phoneForLID falls back to the device's LID store; unmapped LIDs are kept as-is
func (w *WhatsAppClient) phoneForLID(ctx context.Context, lid types.JID) types.JID {
	if w.lids == nil {
		return lid
	}
	pn, err := w.lids.GetPNForLID(ctx, lid)
	if err != nil || pn.IsEmpty() {
		return lid
	}
	return pn.ToNonAD()
}

func (w *WhatsAppClient) record(chat string, at time.Time) {
	if err := w.conversations.Record(context.Background(), chat, at); err != nil {
		w.logger.Warn().Err(err).Str("chat", chat).Msg("failed to record conversation")
	}
}
