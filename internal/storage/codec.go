package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/referral-ledger/internal/models"
)

// encodeUsers writes the users as a JSON object keyed by user id, keeping
// insertion order. Leaderboard ties depend on that order surviving a restart.
func encodeUsers(users []*models.User) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, u := range users {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal user id: %w", err)
		}
		record, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal user %s: %w", u.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(record)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent users: %w", err)
	}
	return out.Bytes(), nil
}

// decodeUsers reads a users document in document order. A record without an
// id takes its key.
func decodeUsers(data []byte) ([]*models.User, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, corrupt(CollectionUsers, err)
	}
	if tok == nil {
		return []*models.User{}, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, corrupt(CollectionUsers, fmt.Errorf("document must be an object, got %v", tok))
	}

	users := []*models.User{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, corrupt(CollectionUsers, err)
		}
		key, _ := keyTok.(string)

		var u models.User
		if err := dec.Decode(&u); err != nil {
			return nil, corrupt(CollectionUsers, fmt.Errorf("user %s: %w", key, err))
		}
		if u.ID == "" {
			u.ID = key
		}
		u.Normalize()
		users = append(users, &u)
	}
	if _, err := dec.Token(); err != nil {
		return nil, corrupt(CollectionUsers, err)
	}
	return users, nil
}

func encodePayouts(payouts []models.Payout) ([]byte, error) {
	if payouts == nil {
		payouts = []models.Payout{}
	}
	data, err := json.MarshalIndent(payouts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payouts: %w", err)
	}
	return data, nil
}

func decodePayouts(data []byte) ([]models.Payout, error) {
	var payouts []models.Payout
	if err := json.Unmarshal(data, &payouts); err != nil {
		return nil, corrupt(CollectionPayouts, err)
	}
	if payouts == nil {
		payouts = []models.Payout{}
	}
	return payouts, nil
}

func encodeSettings(settings models.Settings) ([]byte, error) {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// decodeSettings overlays the document on the defaults, so a document that
// omits a tier keeps the default amount for it.
func decodeSettings(data []byte) (models.Settings, error) {
	settings := models.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return models.Settings{}, corrupt(CollectionSettings, err)
	}
	if settings.ReferralPayouts == nil {
		settings.ReferralPayouts = models.DefaultSettings().ReferralPayouts
	}
	if err := settings.Validate(); err != nil {
		return models.Settings{}, corrupt(CollectionSettings, err)
	}
	return settings, nil
}
