// Package alert defines the feed entity model and the pure admission
// logic applied to each entity before it can be posted.
package alert

import "strings"

// plannedWorkPrefix marks planned-work notices, which are excluded from
// posting regardless of how recent they are.
const plannedWorkPrefix = "lmm:planned_work"

// Translation is one localized rendering of an alert header.
type Translation struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// HeaderText holds the translated header variants of a feed alert.
type HeaderText struct {
	Translation []Translation `json:"translation"`
}

// MercuryAlert carries the provider-specific extension fields. CreatedAt
// is epoch seconds as reported by the feed, compared without timezone
// conversion.
type MercuryAlert struct {
	CreatedAt int64 `json:"created_at"`
}

// FeedAlert is the nested alert payload of a feed entity. Every field is
// optional; the feed routinely emits partial records.
type FeedAlert struct {
	HeaderText   *HeaderText   `json:"header_text"`
	MercuryAlert *MercuryAlert `json:"transit_realtime.mercury_alert"`
}

// Entity is one raw record from the upstream feed.
type Entity struct {
	ID    string     `json:"id"`
	Alert *FeedAlert `json:"alert"`
}

// Alert is the canonical internal form of an admissible feed entity.
// It is only ever produced by Normalize, never assembled from parts.
type Alert struct {
	// ID is the stable feed identifier, used as the dedup key.
	ID string
	// Text is the English display text, truncated at publish time.
	Text string
	// HeaderTranslation is the content-dedup key. It equals Text today
	// but is kept separate because the store indexes it independently.
	HeaderTranslation string
}

// Normalize turns a raw entity into its canonical form. It returns
// ok=false for entities without an English header translation or with
// any part of the alert/header/translation path missing. Absence is a
// normal outcome, not an error: the feed carries many such records.
func Normalize(e *Entity) (Alert, bool) {
	if e == nil || e.Alert == nil || e.Alert.HeaderText == nil {
		return Alert{}, false
	}
	if len(e.Alert.HeaderText.Translation) == 0 {
		return Alert{}, false
	}

	for _, tr := range e.Alert.HeaderText.Translation {
		if tr.Language == "en" {
			return Alert{
				ID:                e.ID,
				Text:              tr.Text,
				HeaderTranslation: tr.Text,
			}, true
		}
	}
	return Alert{}, false
}

// Admissible reports whether an entity is current enough to post.
// bufferTimestamp is epoch seconds; the lower bound is inclusive, so an
// alert created exactly at the buffer boundary is admitted. Planned-work
// notices are never admissible.
func Admissible(e *Entity, bufferTimestamp int64) bool {
	if e == nil || e.Alert == nil || e.Alert.HeaderText == nil || e.Alert.MercuryAlert == nil {
		return false
	}
	if e.Alert.MercuryAlert.CreatedAt == 0 {
		return false
	}
	if strings.HasPrefix(e.ID, plannedWorkPrefix) {
		return false
	}
	return e.Alert.MercuryAlert.CreatedAt >= bufferTimestamp
}
