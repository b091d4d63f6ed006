package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the worker subscription.
const (
	JobWarmRoutes  = "warm_routes"
	JobHealthCheck = "health_check"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	WarmJob          *WarmJob
	Logger           zerolog.Logger
}

// JobMessage is the payload of a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Corridors restricts warm_routes to the named corridors.
	Corridors []string `json:"corridors,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       NewDispatcher(cfg.WarmJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.logger.Debug().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Msg("received pubsub message")

		if h.dispatcher.Handle(ctx, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Dispatcher decodes job messages and runs the matching job.
type Dispatcher struct {
	warmJob *WarmJob
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher for warmJob.
func NewDispatcher(warmJob *WarmJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{warmJob: warmJob, logger: logger}
}

// Handle processes one message and reports whether it should be acked.
// Malformed messages and failed jobs are nacked; unknown job types are acked
// so they are not redelivered.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) bool {
	startTime := time.Now()
	logger := d.logger

	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	var err error
	switch msg.JobType {
	case JobWarmRoutes:
		err = d.handleWarmRoutes(ctx, msg)
	case JobHealthCheck:
		err = d.handleHealthCheck(ctx)
	default:
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (d *Dispatcher) handleWarmRoutes(ctx context.Context, msg JobMessage) error {
	job := d.warmJob
	if len(msg.Corridors) > 0 {
		job = d.warmJob.only(msg.Corridors)
		if len(job.config.Corridors) == 0 {
			return fmt.Errorf("no configured corridor matches %v", msg.Corridors)
		}
	}

	result := job.Run(ctx)

	// Consider it successful if at least half warmed.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many warm-up failures: %d/%d", result.Failed, result.TotalCorridors)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	// Warm only the highest-priority corridor to verify provider connectivity.
	corridors := d.warmJob.config.Ordered()
	trial := d.warmJob.only([]string{corridors[0].Name})
	trial.config.Timeout = 10 * time.Second

	result := trial.Run(ctx)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

// only returns a job sharing j's collaborators and metrics that warms just
// the named corridors.
func (j *WarmJob) only(names []string) *WarmJob {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	cfg := j.config
	cfg.Corridors = nil
	for _, c := range j.config.Corridors {
		if wanted[c.Name] {
			cfg.Corridors = append(cfg.Corridors, c)
		}
	}

	clone := *j
	clone.config = cfg
	return &clone
}
