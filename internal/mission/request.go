package mission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/salekh/genseo-workshop/internal/config"
)

// ErrInvalidRequest is wrapped by every Request validation failure.
var ErrInvalidRequest = errors.New("invalid mission request")

// Request is the immutable input of one mission.
type Request struct {
	Topic          string `json:"topic"`
	ContentType    string `json:"content_type,omitempty"`
	TargetGroup    string `json:"target_group,omitempty"`
	Location       string `json:"location,omitempty"`
	Language       string `json:"language,omitempty"`
	MaxCompetitors int    `json:"max_competitors,omitempty"`
}

// Defaults fills the optional fields of a Request.
type Defaults struct {
	ContentType    string
	TargetGroup    string
	Location       string
	Language       string
	MaxCompetitors int
}

// DefaultsFromConfig extracts request defaults from the mission config.
func DefaultsFromConfig(cfg config.MissionConfig) Defaults {
	return Defaults{
		ContentType:    cfg.DefaultContentType,
		TargetGroup:    cfg.DefaultTargetGroup,
		Location:       cfg.DefaultLocation,
		Language:       cfg.DefaultLanguage,
		MaxCompetitors: cfg.MaxCompetitors,
	}
}

// WithDefaults returns a copy of r with blank fields taken from d.
func (r Request) WithDefaults(d Defaults) Request {
	r.Topic = strings.TrimSpace(r.Topic)
	if strings.TrimSpace(r.ContentType) == "" {
		r.ContentType = d.ContentType
	}
	if strings.TrimSpace(r.TargetGroup) == "" {
		r.TargetGroup = d.TargetGroup
	}
	if strings.TrimSpace(r.Location) == "" {
		r.Location = d.Location
	}
	if strings.TrimSpace(r.Language) == "" {
		r.Language = d.Language
	}
	if r.MaxCompetitors == 0 {
		r.MaxCompetitors = d.MaxCompetitors
	}
	return r
}

// Validate checks the fields a mission cannot run without.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if r.MaxCompetitors <= 0 {
		return fmt.Errorf("%w: max_competitors must be positive, got %d", ErrInvalidRequest, r.MaxCompetitors)
	}
	return nil
}
