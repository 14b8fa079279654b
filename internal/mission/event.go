package mission

import (
	"github.com/salekh/genseo-workshop/internal/domain"
)

// EventType discriminates the Event variants.
type EventType string

const (
	EventStatus   EventType = "status"
	EventData     EventType = "data"
	EventLog      EventType = "log"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Step names a pipeline stage in status events.
type Step string

const (
	StepInit       Step = "init"
	StepResearch   Step = "research"
	StepParsing    Step = "parsing"
	StepAnalysis   Step = "analysis"
	StepBriefing   Step = "briefing"
	StepEvaluation Step = "evaluation"
)

// Source names the collaborator an error event came from.
type Source string

const (
	SourceGoogleAds        Source = "google_ads"
	SourceSerpAPI          Source = "serp_api"
	SourceCustomSearch     Source = "custom_search"
	SourceSemanticAnalysis Source = "semantic_analysis"
	SourceBriefing         Source = "briefing"
	SourceEvaluation       Source = "evaluation"
	SourceMission          Source = "mission"
)

// Data event keys.
const (
	KeyKeywords         = "keywords"
	KeyCompetitors      = "competitors"
	KeySemanticAnalysis = "semantic_analysis"
	KeyBriefing         = "briefing"
	KeyEvaluation       = "evaluation"
)

// Event is one progress message of a mission. Only the fields of its Type
// are set.
type Event struct {
	Type      EventType      `json:"type"`
	MissionID string         `json:"mission_id,omitempty"`
	Step      Step           `json:"step,omitempty"`
	Message   string         `json:"message,omitempty"`
	Key       string         `json:"key,omitempty"`
	Data      any            `json:"data,omitempty"`
	Source    Source         `json:"source,omitempty"`
	Report    *domain.Report `json:"report,omitempty"`
}

func statusEvent(step Step, message string) Event {
	return Event{Type: EventStatus, Step: step, Message: message}
}

func dataEvent(key string, data any) Event {
	return Event{Type: EventData, Key: key, Data: data}
}

func logEvent(message string) Event {
	return Event{Type: EventLog, Message: message}
}

func errorEvent(source Source, message string) Event {
	return Event{Type: EventError, Source: source, Message: message}
}

func completeEvent(report domain.Report) Event {
	return Event{Type: EventComplete, Report: &report}
}
