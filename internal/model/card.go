package model

import "time"

// Card is a collectible card with its three battle stats
type Card struct {
	Name                      string    `json:"name" bson:"_id"`
	Subtitle                  string    `json:"subtitle" bson:"subtitle"`
	Description               string    `json:"description" bson:"description"`
	Image                     string    `json:"image" bson:"image"`
	Set                       string    `json:"set,omitempty" bson:"set,omitempty"`
	EnvironmentalFriendliness int       `json:"environmental_friendliness" bson:"environmentalFriendliness"`
	Beauty                    int       `json:"beauty" bson:"beauty"`
	Cost                      int       `json:"cost" bson:"cost"` // lower is better
	CreatedAt                 time.Time `json:"created_at" bson:"createdAt"`
}
