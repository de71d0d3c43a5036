// Package audio owns the local capture session: permission, mute state,
// stream teardown, and the room grant handed to the capture device.
package audio

import (
	"time"

	"github.com/livekit/protocol/auth"
)

// Grant is the minted room credential a Device needs to attach.
type Grant struct {
	Token string
	URL   string
}

// GrantService mints audio-room join tokens. Identity is the local user
// id and the room name is the debate id, so one debate maps to exactly
// one audio room.
type GrantService struct {
	apiKey    string
	apiSecret string
	url       string
}

func NewGrantService(apiKey, apiSecret, url string) *GrantService {
	return &GrantService{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		url:       url,
	}
}

func (s *GrantService) URL() string {
	return s.url
}

func (s *GrantService) Mint(identity, room string) (Grant, error) {
	at := auth.NewAccessToken(s.apiKey, s.apiSecret)

	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         room,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at.SetIdentity(identity).
		SetValidFor(6 * time.Hour).
		SetVideoGrant(grant)

	token, err := at.ToJWT()
	if err != nil {
		return Grant{}, err
	}
	return Grant{Token: token, URL: s.url}, nil
}
