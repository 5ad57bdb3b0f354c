package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/patient"
)

const triagePromptTemplate = `You are a dental triage assistant for a clinic front desk. Analyze the following patient symptoms and provide a JSON response with triage information.

Patient symptoms: "%s"

Respond with ONLY a JSON object in this exact format (plain text, no markdown formatting):
{
  "priority": "emergency|high|medium|low",
  "recommendedAction": "specific recommendation for the patient in plain text",
  "estimatedWaitTimeMinutes": number_in_minutes,
  "appointmentType": "Emergency|Urgent Care|Routine Cleaning|Consultation|Treatment"
}

Guidelines:
- emergency: severe pain, swelling affecting breathing/swallowing, trauma, bleeding that won't stop
- high: moderate to severe pain, significant swelling, broken tooth with pain
- medium: mild to moderate pain, sensitivity, minor swelling
- low: routine cleaning, check-ups, cosmetic concerns

Estimated wait times: emergency 5-15 minutes, high 15-30, medium 30-60, low 60-120.`

// Classifier turns raw booking input into a triage result. The assisted
// mode is optional and time-bounded; the deterministic rule table always
// backs it up, so classification itself never fails.
type Classifier struct {
	gen     TextGenerator
	timeout time.Duration
	logger  zerolog.Logger

	// onFallback is invoked whenever the assisted path was attempted but
	// the deterministic result was used instead.
	onFallback func(reason string)
}

type ClassifierOption func(*Classifier)

// WithFallbackHook registers a callback for assisted-mode failures,
// typically a metrics counter.
func WithFallbackHook(fn func(reason string)) ClassifierOption {
	return func(c *Classifier) { c.onFallback = fn }
}

// NewClassifier builds a classifier. gen may be nil, in which case only the
// deterministic table runs.
func NewClassifier(gen TextGenerator, timeout time.Duration, logger zerolog.Logger, opts ...ClassifierOption) *Classifier {
	c := &Classifier{gen: gen, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps an appointment type and optional free-text symptoms to a
// triage result. Assisted failures are swallowed: they are logged at debug
// level and replaced by the deterministic result for this request, with no
// retry.
func (c *Classifier) Classify(ctx context.Context, appointmentType, symptoms string) Result {
	if strings.TrimSpace(symptoms) == "" {
		res := ClassifyAppointmentType(appointmentType)
		res.RecommendedAction = StripMarkup(res.RecommendedAction)
		return res
	}

	if c.gen != nil {
		if res, err := c.classifyAssisted(ctx, symptoms); err == nil {
			return res
		} else if c.onFallback != nil {
			c.onFallback(fallbackReason(err))
		}
	}

	res := ClassifyFallback(symptoms)
	res.RecommendedAction = StripMarkup(res.RecommendedAction)
	return res
}

func (c *Classifier) classifyAssisted(parent context.Context, symptoms string) (Result, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	text, err := c.gen.GenerateText(ctx, fmt.Sprintf(triagePromptTemplate, symptoms))
	if err != nil {
		c.logger.Debug().Err(err).Msg("assisted triage unavailable, using rule table")
		return Result{}, err
	}

	res, err := parseAssistedResponse(text)
	if err != nil {
		c.logger.Debug().Err(err).Str("response", text).Msg("assisted triage response rejected")
		return Result{}, err
	}

	res.RecommendedAction = StripMarkup(res.RecommendedAction)
	return res, nil
}

var (
	errNoJSONObject    = errors.New("no JSON object in response")
	errInvalidResponse = errors.New("assisted response failed validation")
)

// assistedResponse mirrors the external service contract. Pointer fields
// distinguish "absent" from zero values.
type assistedResponse struct {
	Priority             *string `json:"priority"`
	RecommendedAction    *string `json:"recommendedAction"`
	EstimatedWaitMinutes *int    `json:"estimatedWaitTimeMinutes"`
	AppointmentType      *string `json:"appointmentType"`
}

// parseAssistedResponse extracts the first {...} blob from the model output
// and validates it against the classifier contract. Any missing field,
// wrong type, unknown field, out-of-enum priority, or negative wait time
// invalidates the whole response.
func parseAssistedResponse(text string) (Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Result{}, errNoJSONObject
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.DisallowUnknownFields()

	var resp assistedResponse
	if err := dec.Decode(&resp); err != nil {
		return Result{}, errInvalidResponse
	}

	if resp.Priority == nil || resp.RecommendedAction == nil ||
		resp.EstimatedWaitMinutes == nil || resp.AppointmentType == nil {
		return Result{}, errInvalidResponse
	}

	priority := patient.Priority(*resp.Priority)
	if !priority.Valid() {
		return Result{}, errInvalidResponse
	}
	if *resp.EstimatedWaitMinutes < 0 {
		return Result{}, errInvalidResponse
	}
	if strings.TrimSpace(*resp.AppointmentType) == "" {
		return Result{}, errInvalidResponse
	}

	return Result{
		Priority:             priority,
		RecommendedAction:    *resp.RecommendedAction,
		EstimatedWaitMinutes: *resp.EstimatedWaitMinutes,
		AppointmentType:      *resp.AppointmentType,
	}, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errNoJSONObject), errors.Is(err, errInvalidResponse):
		return "invalid_response"
	default:
		return "error"
	}
}
