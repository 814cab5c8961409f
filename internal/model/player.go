package model

import "time"

// Profile is a player's game-facing identity: points and collected cards
type Profile struct {
	UserID         string    `json:"userId" bson:"_id"`
	Username       string    `json:"username" bson:"username"`
	Points         int       `json:"points" bson:"points"`
	CollectedCards []string  `json:"collectedCards" bson:"collectedCards"`
	MostRecentCard string    `json:"mostRecentCard,omitempty" bson:"mostRecentCard,omitempty"`
	SignupDate     time.Time `json:"signupDate" bson:"signupDate"`
}

// Owns reports whether the card is in the player's collection
func (p *Profile) Owns(cardID string) bool {
	for _, c := range p.CollectedCards {
		if c == cardID {
			return true
		}
	}
	return false
}

// Account holds login credentials for a user
type Account struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
