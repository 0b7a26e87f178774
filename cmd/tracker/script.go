package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/constructorio-go/internal/shared/codec"
	"github.com/GriffinCanCode/constructorio-go/internal/tracker"
)

// Script is a replayable set of tab sessions
type Script struct {
	Tabs []Tab `yaml:"tabs"`
}

// Tab is the ordered list of steps one tab performs
type Tab struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step either fires an environment signal or tracks an event
type Step struct {
	// Signal is a lifecycle event such as mousemove or beforeunload
	Signal string `yaml:"signal"`
	// Track is a tracker event name such as search_submit
	Track  string                 `yaml:"track"`
	Term   string                 `yaml:"term"`
	Params map[string]interface{} `yaml:"params"`
}

// LoadScript reads and validates a script file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML script
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Tabs) == 0 {
		return nil, fmt.Errorf("script has no tabs")
	}

	for i, tab := range s.Tabs {
		if tab.Name == "" {
			s.Tabs[i].Name = fmt.Sprintf("tab-%d", i+1)
		}
		for j, step := range tab.Steps {
			switch {
			case step.Signal == "" && step.Track == "":
				return nil, fmt.Errorf("%s step %d: signal or track is required", s.Tabs[i].Name, j+1)
			case step.Signal != "" && step.Track != "":
				return nil, fmt.Errorf("%s step %d: signal and track are exclusive", s.Tabs[i].Name, j+1)
			case step.Track != "":
				if _, ok := handlers[step.Track]; !ok {
					return nil, fmt.Errorf("%s step %d: unknown event %q", s.Tabs[i].Name, j+1, step.Track)
				}
			}
		}
	}
	return &s, nil
}

type handler func(t *tracker.Tracker, term string, params map[string]interface{}) error

var handlers = map[string]handler{
	tracker.EventSessionStart: func(t *tracker.Tracker, _ string, _ map[string]interface{}) error {
		return t.TrackSessionStart()
	},
	tracker.EventInputFocus: func(t *tracker.Tracker, _ string, _ map[string]interface{}) error {
		return t.TrackInputFocus()
	},
	tracker.EventItemDetailLoad: func(t *tracker.Tracker, _ string, params map[string]interface{}) error {
		return withParams(params, t.TrackItemDetailLoad)
	},
	tracker.EventAutocompleteSelect: func(t *tracker.Tracker, term string, params map[string]interface{}) error {
		return withTerm(term, params, t.TrackAutocompleteSelect)
	},
	tracker.EventSearchSubmit: func(t *tracker.Tracker, term string, params map[string]interface{}) error {
		return withTerm(term, params, t.TrackSearchSubmit)
	},
	tracker.EventSearchResultsLoaded: func(t *tracker.Tracker, term string, params map[string]interface{}) error {
		return withTerm(term, params, t.TrackSearchResultsLoaded)
	},
	tracker.EventSearchResultClick: func(t *tracker.Tracker, term string, params map[string]interface{}) error {
		return withTerm(term, params, t.TrackSearchResultClick)
	},
	tracker.EventConversion: func(t *tracker.Tracker, term string, params map[string]interface{}) error {
		return withTerm(term, params, t.TrackConversion)
	},
	tracker.EventPurchase: func(t *tracker.Tracker, _ string, params map[string]interface{}) error {
		return withParams(params, func(p tracker.Purchase) error {
			_, err := t.TrackPurchase(p)
			return err
		})
	},
	tracker.EventRecommendationView: func(t *tracker.Tracker, _ string, params map[string]interface{}) error {
		return withParams(params, t.TrackRecommendationView)
	},
	tracker.EventRecommendationClick: func(t *tracker.Tracker, _ string, params map[string]interface{}) error {
		return withParams(params, t.TrackRecommendationClick)
	},
	tracker.EventBrowseResultsLoaded: func(t *tracker.Tracker, _ string, params map[string]interface{}) error {
		return withParams(params, t.TrackBrowseResultsLoaded)
	},
	tracker.EventBrowseResultClick: func(t *tracker.Tracker, _ string, params map[string]interface{}) error {
		return withParams(params, t.TrackBrowseResultClick)
	},
}

// decodeParams converts loosely typed YAML params into an event struct by
// way of its json tags
func decodeParams[T any](params map[string]interface{}) (T, error) {
	var p T
	if len(params) == 0 {
		return p, nil
	}
	data, err := codec.Marshal(params)
	if err != nil {
		return p, fmt.Errorf("failed to encode params: %w", err)
	}
	if err := codec.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to decode params: %w", err)
	}
	return p, nil
}

func withParams[T any](params map[string]interface{}, track func(T) error) error {
	p, err := decodeParams[T](params)
	if err != nil {
		return err
	}
	return track(p)
}

func withTerm[T any](term string, params map[string]interface{}, track func(string, T) error) error {
	p, err := decodeParams[T](params)
	if err != nil {
		return err
	}
	return track(strings.TrimSpace(term), p)
}
