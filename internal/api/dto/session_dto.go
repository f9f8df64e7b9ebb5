package dto

import "time"

// SessionResponse describes the caller and where they belong.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ID            string     `json:"id,omitempty"`
	Email         string     `json:"email,omitempty"`
	Role          string     `json:"role,omitempty"`
	Blocked       bool       `json:"blocked,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Destination   string     `json:"destination"`
}

// ProfileResponse is the caller's profile. The national id hash is never exposed.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	AadharSet   bool      `json:"aadhar_set"`
	Blocked     bool      `json:"blocked"`
	SpamStrikes int       `json:"spam_strikes"`
	HouseNo     *string   `json:"house_no"`
	ColonyName  *string   `json:"colony_name"`
	Pincode     *string   `json:"pincode"`
	MapLink     *string   `json:"map_lngh"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileUpdateRequest payload. Omitted fields are left unchanged.
type ProfileUpdateRequest struct {
	Aadhar     *string `json:"aadhar"`
	HouseNo    *string `json:"house_no"`
	ColonyName *string `json:"colony_name"`
	Pincode    *string `json:"pincode"`
	MapLink    *string `json:"map_lngh"`
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest payload for POST /chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}
