package gemini

import (
	"sync"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

// DefaultModels is the fallback order for vision extraction
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash"}

// ModelSelector picks which model to call next and tracks quota exhaustion
type ModelSelector interface {
	Next() (string, bool)
	RecordUsage(model string)
	MarkExhausted(model string)
}

// ModelStatus is the daily usage of one model
type ModelStatus struct {
	Model     string `json:"model"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit,omitempty"`
	Exhausted bool   `json:"exhausted"`
}

type modelUsage struct {
	date      string
	count     int
	exhausted bool
}

// FallbackSelector returns the first model, in priority order, that has not
// been exhausted today. Quotas reset at midnight Pacific time, which is when
// Google resets daily request limits.
type FallbackSelector struct {
	mu         sync.Mutex
	models     []string
	dailyLimit int
	usage      map[string]*modelUsage
	location   *time.Location
	now        func() time.Time
}

// NewFallbackSelector creates a selector over models. dailyLimit > 0 also
// retires a model once 90% of that many requests were made today.
func NewFallbackSelector(models []string, dailyLimit int) *FallbackSelector {
	if len(models) == 0 {
		models = DefaultModels
	}
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		location = time.UTC
	}
	return &FallbackSelector{
		models:     append([]string(nil), models...),
		dailyLimit: dailyLimit,
		usage:      make(map[string]*modelUsage),
		location:   location,
		now:        time.Now,
	}
}

// Next returns the first available model
func (s *FallbackSelector) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	for _, model := range s.models {
		if s.available(model, today) {
			return model, true
		}
	}
	return "", false
}

// RecordUsage counts a successful request against today's quota
func (s *FallbackSelector) RecordUsage(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current(model).count++
}

// MarkExhausted retires model until the next daily reset
func (s *FallbackSelector) MarkExhausted(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current(model).exhausted = true
	zap.L().Warn("model marked as exhausted", zap.String("model", model), zap.String("date", s.today()))
}

// Status returns today's usage for every configured model
func (s *FallbackSelector) Status() []ModelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ModelStatus, 0, len(s.models))
	for _, model := range s.models {
		u := s.current(model)
		out = append(out, ModelStatus{
			Model:     model,
			Used:      u.count,
			Limit:     s.dailyLimit,
			Exhausted: !s.available(model, u.date),
		})
	}
	return out
}

func (s *FallbackSelector) available(model, today string) bool {
	u, ok := s.usage[model]
	if !ok || u.date != today {
		return true
	}
	if u.exhausted {
		return false
	}
	if s.dailyLimit > 0 {
		return u.count < int(float64(s.dailyLimit)*0.9)
	}
	return true
}

// current returns today's usage entry, starting a new one after the reset
func (s *FallbackSelector) current(model string) *modelUsage {
	today := s.today()
	u, ok := s.usage[model]
	if !ok || u.date != today {
		u = &modelUsage{date: today}
		s.usage[model] = u
	}
	return u
}

func (s *FallbackSelector) today() string {
	return s.now().In(s.location).Format("2006-01-02")
}
