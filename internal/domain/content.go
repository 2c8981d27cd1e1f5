package domain

import (
	"encoding/json"
	"time"
)

// ContentType selects the schema and the file a content blob is stored in
type ContentType string

const (
	ContentProfile         ContentType = "profile"
	ContentSkills          ContentType = "skills"
	ContentProjects        ContentType = "projects"
	ContentRecommendations ContentType = "recommendations"
)

// ContentTypes lists every accepted content type
var ContentTypes = []ContentType{ContentProfile, ContentSkills, ContentProjects, ContentRecommendations}

// Valid reports whether t is one of ContentTypes
func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SaveContentRequest is the body of POST /api/admin/content
type SaveContentRequest struct {
	Type   ContentType     `json:"type"`
	Locale string          `json:"locale"`
	Data   json.RawMessage `json:"data"`
}

// SaveContentResponse acknowledges a stored blob
type SaveContentResponse struct {
	Type      ContentType `json:"type"`
	Locale    string      `json:"locale"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Link is a labelled external URL
type Link struct {
	Label string `json:"label" validate:"required,max=60"`
	URL   string `json:"url" validate:"required,url"`
}

// Profile backs the hero and contact sections
type Profile struct {
	Name     string `json:"name" validate:"required,max=120"`
	Headline string `json:"headline" validate:"required,max=200"`
	About    string `json:"about" validate:"max=4000"`
	Email    string `json:"email" validate:"omitempty,email"`
	Location string `json:"location" validate:"max=120"`
	Avatar   string `json:"avatar" validate:"omitempty,max=500"`
	Links    []Link `json:"links" validate:"max=20,dive"`
}

// SkillGroup is one slide of the skills carousel
type SkillGroup struct {
	Name   string   `json:"name" validate:"required,max=80"`
	Skills []string `json:"skills" validate:"required,min=1,max=50,dive,required,max=60"`
}

// Skills backs the about/skills carousel
type Skills struct {
	Groups []SkillGroup `json:"groups" validate:"required,min=1,max=20,dive"`
}

// Project is one gallery card and its modal
type Project struct {
	Slug        string   `json:"slug" validate:"required,max=64,slug"`
	Title       string   `json:"title" validate:"required,max=120"`
	Summary     string   `json:"summary" validate:"required,max=300"`
	Description string   `json:"description" validate:"max=8000"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=40"`
	Images      []string `json:"images" validate:"max=20,dive,required,max=500"`
	DemoURL     string   `json:"demo_url" validate:"omitempty,url"`
	SourceURL   string   `json:"source_url" validate:"omitempty,url"`
}

// Projects backs the project gallery
type Projects struct {
	Items []Project `json:"items" validate:"max=100,dive"`
}

// Recommendation is a quote from a colleague
type Recommendation struct {
	Author  string `json:"author" validate:"required,max=120"`
	Role    string `json:"role" validate:"max=160"`
	Quote   string `json:"quote" validate:"required,max=3000"`
	Profile string `json:"profile" validate:"omitempty,url"`
}

// Recommendations backs the recommendations section
type Recommendations struct {
	Items []Recommendation `json:"items" validate:"max=100,dive"`
}

// NewContentSchema returns an empty value to decode and validate data of type t
func NewContentSchema(t ContentType) (interface{}, bool) {
	switch t {
	case ContentProfile:
		return &Profile{}, true
	case ContentSkills:
		return &Skills{}, true
	case ContentProjects:
		return &Projects{}, true
	case ContentRecommendations:
		return &Recommendations{}, true
	default:
		return nil, false
	}
}
