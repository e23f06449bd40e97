package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

// Event is one realtime message in either direction.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	if payload == nil {
		return Event{Type: eventType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

var errMalformedClaim = errors.New("malformed identity claim")

// Claims are the identity fields an inbound payload asserts about itself.
type Claims struct {
	TenantIDs []int64
	UserIDs   []int64
}

// readClaims extracts every tenantId and userId the payload carries at any
// depth, inside nested objects and arrays alike, including snake_case and
// differently cased spellings. Scalar payloads carry no claims.
func readClaims(payload json.RawMessage) (Claims, error) {
	var c Claims
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return c, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return c, errMalformedClaim
	}
	if err := c.collect(v); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Claims) collect(v any) error {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if err := c.collect(item); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, field := range t {
			switch normalizeKey(k) {
			case "tenantid":
				id, err := claimID(field)
				if err != nil {
					return err
				}
				c.TenantIDs = append(c.TenantIDs, id)
			case "userid":
				id, err := claimID(field)
				if err != nil {
					return err
				}
				c.UserIDs = append(c.UserIDs, id)
			default:
				if err := c.collect(field); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func claimID(v any) (int64, error) {
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = t
	default:
		return 0, errMalformedClaim
	}
	id, ok := tenant.ParseTenantID(raw)
	if !ok {
		return 0, errMalformedClaim
	}
	return id, nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
