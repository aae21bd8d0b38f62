package model

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation types
const (
	ConversationDirect = "direct"
)

// Mentorship states
const (
	MentorshipPending   = "pending"
	MentorshipActive    = "active"
	MentorshipCompleted = "completed"
	MentorshipCancelled = "cancelled"
)

// Conversation represents a chat conversation in MongoDB
type Conversation struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Participants      []string            `json:"participants" bson:"participants"`
	Type              string              `json:"type" bson:"type"`
	Title             string              `json:"title" bson:"title"`
	LastMessage       *primitive.ObjectID `json:"lastMessage" bson:"last_message"`
	LastActivity      time.Time           `json:"lastActivity" bson:"last_activity"`
	IsArchived        bool                `json:"isArchived" bson:"is_archived"`
	MentorshipDetails *MentorshipDetails  `json:"mentorshipDetails,omitempty" bson:"mentorship_details,omitempty"`
	CreatedBy         string              `json:"createdBy" bson:"created_by"`
	CreatedAt         time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updatedAt" bson:"updated_at"`
}

// MentorshipDetails is attached to conversations opened for a mentorship
type MentorshipDetails struct {
	Topic     string     `json:"topic" bson:"topic"`
	Status    string     `json:"status" bson:"status"`
	StartedAt *time.Time `json:"startedAt,omitempty" bson:"started_at,omitempty"`
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except userID
func (c *Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

// NormalizeParticipants returns the ids sorted with duplicates and blanks removed.
// Stored participant lists are always normalized so a pair lookup is an exact match.
func NormalizeParticipants(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ConversationSummary is a listing row for a user
type ConversationSummary struct {
	Conversation
	UnreadCount   int64          `json:"unreadCount"`
	OnlineMembers map[string]bool `json:"onlineMembers,omitempty"`
}
