package usecases

import (
	"errors"

	"project_greeter/internal/entities"
)

var ErrUnknownAccount = errors.New("unknown account")

// QRSource renders the pending login QR code of an account as PNG
type QRSource interface {
	QRPNG(account string) ([]byte, error)
}

// LimitSource reports the per-minute send caps per account
type LimitSource interface {
	GetStats() map[string]float64
}

// Status is the snapshot served by the status endpoint
type Status struct {
	Progress  Progress                `json:"progress"`
	Accounts  []entities.AccountStats `json:"accounts"`
	TotalSent int                     `json:"total_sent"`
	Limits    map[string]float64      `json:"limits_per_minute,omitempty"`
}

type DashboardUsecase struct {
	dispatch *DispatchUsecase
	qr       QRSource
	limits   LimitSource
}

func NewDashboardUsecase(dispatch *DispatchUsecase, qr QRSource, limits LimitSource) *DashboardUsecase {
	return &DashboardUsecase{
		dispatch: dispatch,
		qr:       qr,
		limits:   limits,
	}
}

func (u *DashboardUsecase) GetStatus() Status {
	status := Status{Progress: u.dispatch.Progress()}
	for _, s := range u.dispatch.Sessions() {
		stats := s.Stats()
		status.Accounts = append(status.Accounts, stats)
		status.TotalSent += stats.Sent
	}
	if u.limits != nil {
		status.Limits = u.limits.GetStats()
	}
	return status
}

// GetAccount returns the counters of one account by profile name
func (u *DashboardUsecase) GetAccount(account string) (entities.AccountStats, error) {
	for _, s := range u.dispatch.Sessions() {
		if s.Name() == account {
			return s.Stats(), nil
		}
	}
	return entities.AccountStats{}, ErrUnknownAccount
}

func (u *DashboardUsecase) GetLoginQR(account string) ([]byte, error) {
	if _, err := u.GetAccount(account); err != nil {
		return nil, err
	}
	if u.qr == nil {
		return nil, errors.New("login QR codes are not available")
	}
	return u.qr.QRPNG(account)
}
