package model

import "time"

// Follow links a follower to a creator. The pair is unique.
type Follow struct {
	ID         string    `json:"id"         db:"id"`
	CreatorID  string    `json:"creatorId"  db:"creator_id"`
	FollowerID string    `json:"followerId" db:"follower_id"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}
