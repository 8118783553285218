package vesselsync

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/vesselsync/model"
)

// CatchupReplayer backfills a reconnecting consumer with everything it
// missed: rows changed since a timestamp are replayed, oldest first, on the
// entity's dedicated catchup topic with sequence/total metadata.
//
// Unlike the routine publish path, catchup errors propagate. Partial or
// undetected data loss during a backfill is unacceptable, so a failed store
// query or publish fails the whole operation.
type CatchupReplayer struct {
	session    BrokerSession
	changeFeed ChangeFeedRepository
	logger     Logger
	metrics    *Metrics
}

// CatchupOption configures a CatchupReplayer.
type CatchupOption func(*CatchupReplayer) error

// NewCatchupReplayer creates a new CatchupReplayer with the provided options.
//
// Required options:
//   - WithCatchupSession: the broker session
//   - WithCatchupChangeFeed: the change-feed repository
//   - WithCatchupLogger: logger instance
func NewCatchupReplayer(opts ...CatchupOption) (*CatchupReplayer, error) {
	c := &CatchupReplayer{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply catchup option", err)
		}
	}

	// Validate required dependencies
	if c.session == nil {
		return nil, NewError(ErrCodeConfiguration, "BrokerSession is required (use WithCatchupSession)")
	}
	if c.changeFeed == nil {
		return nil, NewError(ErrCodeConfiguration, "ChangeFeedRepository is required (use WithCatchupChangeFeed)")
	}
	if c.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithCatchupLogger)")
	}
	if c.metrics == nil {
		c.metrics = NewMetrics()
	}

	return c, nil
}

// WithCatchupSession sets the broker session. Required.
func WithCatchupSession(session BrokerSession) CatchupOption {
	return func(c *CatchupReplayer) error {
		if session == nil {
			return fmt.Errorf("session cannot be nil")
		}
		c.session = session
		return nil
	}
}

// WithCatchupChangeFeed sets the change-feed repository. Required.
func WithCatchupChangeFeed(changeFeed ChangeFeedRepository) CatchupOption {
	return func(c *CatchupReplayer) error {
		if changeFeed == nil {
			return fmt.Errorf("changeFeed cannot be nil")
		}
		c.changeFeed = changeFeed
		return nil
	}
}

// WithCatchupLogger sets the logger instance. Required.
func WithCatchupLogger(logger Logger) CatchupOption {
	return func(c *CatchupReplayer) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithCatchupMetrics sets the shared counter set.
func WithCatchupMetrics(metrics *Metrics) CatchupOption {
	return func(c *CatchupReplayer) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// PublishCatchupMessages replays rows of an entity class changed at or
// after since, capped at limit, on the entity's catchup topic.
//
// Each row goes out as a catchup envelope with a 0-based sequence in
// ascending last-modified order and total set to the replayed row count,
// QoS 1, never retained. Consumers detect a complete backfill when
// sequence reaches total-1.
//
// Returns the number of messages published. A store query failure or a
// publish failure fails the operation.
func (c *CatchupReplayer) PublishCatchupMessages(ctx context.Context, entityClass string, since time.Time, limit int) (int, error) {
	if entityClass == "" {
		return 0, NewError(ErrCodeValidation, "entity class is required")
	}
	if limit <= 0 {
		return 0, NewError(ErrCodeValidation, "limit must be > 0")
	}

	rows, err := c.changeFeed.FindChangedSince(ctx, entityClass, since, limit)
	if err != nil {
		if IsNoData(err) {
			c.logger.Infof("Catchup for %s since %s: no changes", entityClass, since.Format(time.RFC3339))
			return 0, nil
		}
		return 0, NewErrorWithCause(ErrCodeDatabase, "catchup query failed", err)
	}

	topic := CatchupTopicFor(entityClass)
	total := len(rows)

	c.logger.Infof("Catchup for %s since %s: replaying %d rows on %s",
		entityClass, since.Format(time.RFC3339), total, topic)

	for i, row := range rows {
		envelope := model.NewCatchupEnvelope(entityClass, row.Data, i, total)
		payload, err := envelope.Encode()
		if err != nil {
			return i, NewErrorWithCause(ErrCodeSerialization, fmt.Sprintf("failed to encode catchup row %d", i), err)
		}

		if err := c.session.Publish(topic, CatchupPolicy.QoS, CatchupPolicy.Retain, payload); err != nil {
			return i, NewErrorWithCause(ErrCodePublish, fmt.Sprintf("catchup publish failed at row %d/%d", i, total), err)
		}
		c.metrics.IncPublished()
	}

	return total, nil
}
