// package models defines the data model shared by the session, job and social clients
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Identity is the cached user profile written alongside the access credential.
//
// The server is the source of truth; this copy avoids a round trip to show who is logged in.
type Identity struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Username string   `json:"username,omitempty"`
	Avatar   string   `json:"avatar,omitempty"`
	DNA      *DNACard `json:"dnaCard,omitempty"`
}

// DNACard is the taste profile produced by onboarding.
type DNACard struct {
	Persona string   `json:"persona"`
	Palette []string `json:"palette"`
	Tribe   string   `json:"tribe"`
}

// DisplayName returns the best human-readable label for the identity.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Username != "":
		return i.Username
	default:
		return i.Email
	}
}

// Merge returns i with every non-empty field of update applied on top.
func (i Identity) Merge(update Identity) Identity {
	if update.ID != "" {
		i.ID = update.ID
	}
	if update.Name != "" {
		i.Name = update.Name
	}
	if update.Email != "" {
		i.Email = update.Email
	}
	if update.Username != "" {
		i.Username = update.Username
	}
	if update.Avatar != "" {
		i.Avatar = update.Avatar
	}
	if update.DNA != nil {
		i.DNA = update.DNA
	}
	return i
}

// JobStatus is the server-side state of a generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the server will never move the job out of this status.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Persona is a generation job: a prompt, an optional source image, and eventually a video.
type Persona struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	Prompt         string    `json:"prompt"`
	SourceImageURL string    `json:"imageUrl,omitempty"`
	ResultVideoURL string    `json:"videoUrl,omitempty"`
	Status         JobStatus `json:"status"`
	Title          string    `json:"title,omitempty"`
	Price          float64   `json:"price,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Domain         string    `json:"domain,omitempty"`
	Likes          int       `json:"likes,omitempty"`
	Creator        *Creator  `json:"creator,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// Creator is the public face of a persona's author, present on public listings.
type Creator struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	DNA  *DNACard `json:"dnaCard,omitempty"`
}

// UnmarshalJSON accepts the job id as either "id" or "_id", and "userId" as
// either a plain id or the populated author object public listings return.
func (p *Persona) UnmarshalJSON(data []byte) error {
	type plain Persona
	var aux struct {
		plain
		LegacyID string          `json:"_id"`
		Owner    json.RawMessage `json:"userId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Persona(aux.plain)
	if p.ID == "" {
		p.ID = aux.LegacyID
	}

	owner := bytes.TrimSpace(aux.Owner)
	switch {
	case len(owner) == 0 || bytes.Equal(owner, []byte("null")):
	case owner[0] == '{':
		var c struct {
			Creator
			LegacyID string `json:"_id"`
		}
		if err := json.Unmarshal(owner, &c); err != nil {
			return err
		}
		if c.ID == "" {
			c.ID = c.LegacyID
		}
		p.UserID = c.ID
		p.Creator = &c.Creator
	default:
		if err := json.Unmarshal(owner, &p.UserID); err != nil {
			return err
		}
	}
	return nil
}

// PublicProfile is a user's page as anyone can see it.
type PublicProfile struct {
	Name     string    `json:"name"`
	Username string    `json:"username,omitempty"`
	VibeSeed []string  `json:"vibeSeed"`
	DNA      *DNACard  `json:"dnaCard,omitempty"`
	Personas []Persona `json:"-"`
}

// Vibe returns the headline label of the profile.
func (p PublicProfile) Vibe() string {
	switch {
	case p.DNA != nil && p.DNA.Persona != "":
		return p.DNA.Persona
	case len(p.VibeSeed) > 0 && p.VibeSeed[0] != "":
		return p.VibeSeed[0]
	default:
		return "Visionary"
	}
}

// CreatePersonaRequest is the body of a job submission.
type CreatePersonaRequest struct {
	Prompt         string  `json:"prompt"`
	SourceImageURL string  `json:"imageUrl,omitempty"`
	Title          string  `json:"title,omitempty"`
	Price          float64 `json:"price,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	Domain         string  `json:"domain,omitempty"`
}

// Product is the result of extracting a shop page.
type Product struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Price       float64  `json:"price"`
	URL         string   `json:"url"`
	Domain      string   `json:"domain"`
	Currency    string   `json:"currency"`
}

// Notification is a read-only activity item.
type Notification struct {
	ID           string    `json:"_id"`
	Sender       string    `json:"-"`
	SubjectTitle string    `json:"-"`
	Type         string    `json:"type"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UnmarshalJSON flattens the populated sender and dream references.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	var aux struct {
		plain
		Sender struct {
			Name string `json:"name"`
		} `json:"sender"`
		Dream struct {
			Title string `json:"title"`
		} `json:"dreamId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = Notification(aux.plain)
	n.Sender = aux.Sender.Name
	n.SubjectTitle = aux.Dream.Title
	return nil
}

// LikeState is the locally observable like status of one persona.
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"likes"`
}

// Toggled returns the state after the user presses like.
func (s LikeState) Toggled() LikeState {
	if s.Liked {
		return LikeState{Liked: false, Count: max(s.Count-1, 0)}
	}
	return LikeState{Liked: true, Count: s.Count + 1}
}

// HistoryEntry is a job submitted from this machine, kept for `persona history`.
type HistoryEntry struct {
	ID             string
	Prompt         string
	Status         JobStatus
	ResultVideoURL string
	SubmittedAt    time.Time
	UpdatedAt      time.Time
}
