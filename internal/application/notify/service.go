package notify

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/event"
)

// Circuit breaker defaults for the push endpoint.
const (
	defaultMaxFailures uint32        = 5
	defaultCBTimeout   time.Duration = 30 * time.Second
	defaultCBInterval  time.Duration = 60 * time.Second

	pushTimeout = 10 * time.Second
)

// Config supplies the push notification settings. Implemented by the
// settings store so edits take effect without a restart.
type Config interface {
	NotificationConfig() (enabled bool, ntfyURL, topic string)
}

// Service fans out agent lifecycle notifications: always to connected
// observers through the event publisher, and optionally to an ntfy
// endpoint for out-of-band push delivery. The push path sits behind a
// circuit breaker so an unreachable endpoint cannot stall or retry-storm
// the supervisor.
type Service struct {
	publisher event.Publisher
	config    Config
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    zerolog.Logger
}

func NewService(publisher event.Publisher, config Config, logger zerolog.Logger) *Service {
	log := logger.With().Str("service", "notify").Logger()
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "ntfy",
		MaxRequests: 1,
		Interval:    defaultCBInterval,
		Timeout:     defaultCBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= defaultMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return &Service{
		publisher: publisher,
		config:    config,
		client:    &http.Client{Timeout: pushTimeout},
		breaker:   cb,
		logger:    log,
	}
}

// AgentFinished announces a terminal agent to observers and, when
// configured, to the push endpoint.
func (s *Service) AgentFinished(a *agent.Agent) {
	title := titleFor(a.Status)
	body := a.Message
	if body == "" {
		body = fmt.Sprintf("Agent %s is %s", a.AgentID, a.Status)
	}

	s.publisher.Publish(event.NewNotification(title, body))

	enabled, ntfyURL, topic := s.config.NotificationConfig()
	if !enabled || ntfyURL == "" {
		return
	}
	if err := s.push(ntfyURL, topic, title, body, priorityFor(a.Status)); err != nil {
		s.logger.Warn().Err(err).Str("agent_id", a.AgentID.String()).Msg("push notification failed")
	}
}

func (s *Service) push(ntfyURL, topic, title, body, priority string) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		url := strings.TrimRight(ntfyURL, "/") + "/" + topic
		req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Title", title)
		req.Header.Set("Priority", priority)
		req.Header.Set("Tags", "robot")

		resp, err := s.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("ntfy returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("push circuit open: %w", err)
	}
	return err
}

// State exposes the breaker state for the health endpoint.
func (s *Service) State() gobreaker.State {
	return s.breaker.State()
}

func titleFor(status agent.Status) string {
	switch status {
	case agent.StatusCompleted:
		return "Agent finished"
	case agent.StatusFailed:
		return "Agent failed"
	case agent.StatusInterrupted:
		return "Agent interrupted"
	default:
		return "Agent update"
	}
}

func priorityFor(status agent.Status) string {
	if status == agent.StatusFailed {
		return "high"
	}
	return "default"
}
