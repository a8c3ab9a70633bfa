// Package normalize converts any historically-seen entry shape into the
// canonical models.Entry. It is the only place in the codebase that knows
// about legacy record shapes; everything past this boundary works with
// canonical records exclusively.
//
// Three shapes exist in stored data and client payloads:
//
//	current: {items: [{type, skill}, ...]}
//	legacy:  {type: "offre"|"demande", skills: "a, b; c" | [...]}
//	legacy:  {skills: ..., wants: ...} — wants are always demands
//
// Normalize is total: malformed fragments are dropped, never fatal, and it
// is idempotent so stored documents can be re-normalized on every read.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/reseauechanges/annuaire/internal/server/models"
)

// Entry maps a decoded JSON object to a canonical Entry. Unknown fields are
// ignored, missing fields become zero values.
func Entry(raw map[string]any) models.Entry {
	e := models.Entry{
		ID:        String(raw["id"]),
		FirstName: String(raw["firstName"]),
		LastName:  String(raw["lastName"]),
		Phone:     String(raw["phone"]),
		CreatedAt: timestamp(raw["createdAt"]),
		UpdatedAt: timestamp(raw["updatedAt"]),
	}

	if seq, ok := raw["items"].([]any); ok {
		e.Items = items(seq)
		return e
	}

	e.Items = legacyItems(raw)
	return e
}

// FromJSON decodes a stored document and normalizes it. The error is
// non-nil only for JSON that cannot be decoded at all; shape problems are
// absorbed by Entry.
func FromJSON(data []byte) (models.Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Entry{}, fmt.Errorf("decoding entry document: %w", err)
	}
	return Entry(raw), nil
}

// Items re-validates an already-canonical item list: trims skills, coerces
// types, drops items left with an empty skill.
func Items(in []models.Item) []models.Item {
	out := make([]models.Item, 0, len(in))
	for _, it := range in {
		skill := strings.TrimSpace(it.Skill)
		if skill == "" {
			continue
		}
		out = append(out, models.Item{Type: Type(string(it.Type)), Skill: skill})
	}
	return out
}

// Type maps a raw type tag to one of the two canonical values. The French
// tags from the original client are accepted as aliases; anything
// unrecognized defaults to demand.
func Type(s string) models.ItemType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "offer", "offre":
		return models.TypeOffer
	default:
		return models.TypeDemand
	}
}

// String coerces a decoded JSON value to a trimmed string. Numbers are
// formatted, everything non-scalar becomes "".
func String(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func items(seq []any) []models.Item {
	out := make([]models.Item, 0, len(seq))
	for _, v := range seq {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		skill := String(m["skill"])
		if skill == "" {
			continue
		}
		out = append(out, models.Item{Type: Type(String(m["type"])), Skill: skill})
	}
	return out
}

// legacyItems handles the pre-items shapes: a single type plus a skills
// field, optionally accompanied by a wants field. Skills carry the record's
// type (offer unless the record is demand-tagged); wants are always demands.
func legacyItems(raw map[string]any) []models.Item {
	skillType := models.TypeOffer
	switch strings.ToLower(String(raw["type"])) {
	case "demande", "demand":
		skillType = models.TypeDemand
	}

	var out []models.Item
	for _, skill := range skillList(raw["skills"]) {
		out = append(out, models.Item{Type: skillType, Skill: skill})
	}
	for _, skill := range skillList(raw["wants"]) {
		out = append(out, models.Item{Type: models.TypeDemand, Skill: skill})
	}
	return out
}

// skillList accepts either a delimited string ("a, b; c|d") or a sequence
// and returns the trimmed, non-empty skills.
func skillList(v any) []string {
	var parts []string
	switch value := v.(type) {
	case string:
		parts = strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ';' || r == '|'
		})
	case []any:
		for _, item := range value {
			parts = append(parts, String(item))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func timestamp(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
