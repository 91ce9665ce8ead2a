// Package studyplan resolves a user's study plan through the study-plan
// service.
package studyplan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

// Status classifies a lookup.
type Status int

const (
	Resolved Status = iota
	Unauthorized
	Forbidden
	NotFound
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// Plan is the study plan document returned by the service. Ids are numbers
// on the wire; planData is an opaque JSON string.
type Plan struct {
	ID               json.Number     `json:"id"`
	Name             string          `json:"name"`
	UserID           json.Number     `json:"userId"`
	StudyProgramID   json.Number     `json:"studyProgramId"`
	StudyProgramName string          `json:"studyProgramName"`
	PlanData         json.RawMessage `json:"planData,omitempty"`
	IsActive         bool            `json:"isActive"`
}

// ProgramID returns the study program id as a string, empty when unset.
func (p *Plan) ProgramID() string {
	if p == nil {
		return ""
	}
	return p.StudyProgramID.String()
}

// Outcome is the result of a lookup. Plan is set only when Status is
// Resolved; Err carries the cause of an Unavailable outcome.
type Outcome struct {
	Status Status
	Plan   *Plan
	Err    error
}

// Client calls GET {base}/api/v1/study-plans/{id}.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func New(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Lookup fetches plan id, sending bearer as the Authorization credential
// when it is not empty. Failures are reported through the outcome.
func (c *Client) Lookup(ctx context.Context, id, bearer string) Outcome {
	endpoint := fmt.Sprintf("%s/api/v1/study-plans/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Outcome{Status: Unavailable, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if bearer = strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer ")); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("study plan service unreachable", "study_plan_id", id, "error", err)
		return Outcome{Status: Unavailable, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return Outcome{Status: Unauthorized}
	case http.StatusForbidden:
		return Outcome{Status: Forbidden}
	case http.StatusNotFound:
		return Outcome{Status: NotFound}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("study plan service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		c.log.Warn("study plan lookup failed", "study_plan_id", id, "status", resp.StatusCode)
		return Outcome{Status: Unavailable, Err: err}
	}

	var plan Plan
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return Outcome{Status: Unavailable, Err: fmt.Errorf("decoding study plan: %w", err)}
	}
	if plan.ProgramID() == "" {
		return Outcome{Status: Unavailable, Err: fmt.Errorf("study plan %s has no study program", id)}
	}
	return Outcome{Status: Resolved, Plan: &plan}
}
