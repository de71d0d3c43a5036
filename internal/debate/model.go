package debate

import "time"

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusEnded     Status = "ENDED"
)

func (s Status) Terminal() bool {
	return s == StatusEnded
}

type Side string

const (
	SideAgree     Side = "agree"
	SideDisagree  Side = "disagree"
	SideNeutral   Side = "neutral"
	SideSpectator Side = "spectator"
)

// Debatable reports whether the side counts toward agree/disagree totals.
func (s Side) Debatable() bool {
	return s == SideAgree || s == SideDisagree
}

func (s Side) Valid() bool {
	switch s {
	case SideAgree, SideDisagree, SideNeutral, SideSpectator:
		return true
	}
	return false
}

// Opposite returns the other debatable side, or the side itself when it is
// not debatable.
func (s Side) Opposite() Side {
	switch s {
	case SideAgree:
		return SideDisagree
	case SideDisagree:
		return SideAgree
	}
	return s
}

type Role string

const (
	RoleHost Role = "HOST"
	RoleUser Role = "USER"
)

// HostProfile is the embedded host object some backend responses carry in
// place of (or in addition to) the flat hostId field.
type HostProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Handle      string `json:"handle,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

type Debate struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Category        string       `json:"category,omitempty"`
	HostID          string       `json:"hostId,omitempty"`
	Host            *HostProfile `json:"host,omitempty"`
	Status          Status       `json:"status"`
	StartTime       time.Time    `json:"startTime"`
	EndTime         *time.Time   `json:"endTime,omitempty"`
	DurationMinutes int          `json:"durationMinutes"`
	AgreeCount      int          `json:"agreeCount"`
	DisagreeCount   int          `json:"disagreeCount"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ResolvedHostID returns the host identifier from whichever denormalized
// field the backend populated. It can be empty on a partial snapshot.
func (d *Debate) ResolvedHostID() string {
	if d == nil {
		return ""
	}
	if d.HostID != "" {
		return d.HostID
	}
	if d.Host != nil {
		return d.Host.ID
	}
	return ""
}

// EndsAt derives the wall-clock deadline for the debate. When the backend
// did not set an explicit end time, it falls back to start + duration.
func (d *Debate) EndsAt() (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	if d.EndTime != nil && !d.EndTime.IsZero() {
		return *d.EndTime, true
	}
	if d.DurationMinutes > 0 && !d.StartTime.IsZero() {
		return d.StartTime.Add(time.Duration(d.DurationMinutes) * time.Minute), true
	}
	return time.Time{}, false
}

type Participant struct {
	ID            string     `json:"id"`
	DebateID      string     `json:"debateId"`
	UserID        string     `json:"userId"`
	Role          Role       `json:"role,omitempty"`
	Side          Side       `json:"side"`
	IsSelfMuted   bool       `json:"isSelfMuted"`
	IsMutedByHost bool       `json:"isMutedByHost"`
	HasSwitched   bool       `json:"hasSwitched,omitempty"`
	JoinedAt      time.Time  `json:"joinedAt,omitempty"`
	LeftAt        *time.Time `json:"leftAt,omitempty"`

	DisplayName string `json:"displayName,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Identity is the locally known presentation identity of the device's user,
// used to synthesize a shadow participant before the backend catches up.
type Identity struct {
	UserID      string
	DisplayName string
	Handle      string
	Avatar      string
}

// StatsRecord is the idempotent per-debate statistics submission. DebateID
// doubles as the idempotency key.
type StatsRecord struct {
	DebateID      string `json:"debateId"`
	Topic         string `json:"topic"`
	AgreeCount    int    `json:"agreeCount"`
	DisagreeCount int    `json:"disagreeCount"`
	Participants  int    `json:"participants"`
}

// CountSides tallies agree/disagree participants, excluding the host and any
// neutral or spectator entries, mirroring how session stats are derived.
func CountSides(participants []Participant, hostID string) (agree, disagree int) {
	for _, p := range participants {
		if p.Role == RoleHost || (hostID != "" && p.UserID == hostID) {
			continue
		}
		if p.LeftAt != nil {
			continue
		}
		switch p.Side {
		case SideAgree:
			agree++
		case SideDisagree:
			disagree++
		}
	}
	return agree, disagree
}
