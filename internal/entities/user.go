package entities

// Recipient is a handle waiting in the queue for a greeting
type Recipient string

// Profile is one sender identity as configured by the operator
type Profile struct {
	Name         string `json:"NAME"`
	Phone        string `json:"PHONE_NUMBER"`
	SessionName  string `json:"SESSION_NAME"`
	Color        string `json:"COLOR"`
	MaxPerMinute int    `json:"MAX_PER_MINUTE,omitempty"` // 0 = unlimited
}

// AccountStats is a point-in-time copy of an account session's counters
type AccountStats struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Authenticated bool   `json:"authenticated"`
	Sent          int    `json:"sent"`
	Failures      int    `json:"consecutive_failures"`
	Restricted    bool   `json:"restricted"`
}
