package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	redisclient "github.com/pathlight-hq/pathlight-backend/internal/clients/redis"
	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

const (
	EventProgressChanged     = "progress.changed"
	EventLessonCompleted     = "lesson.completed"
	EventCourseCompleted     = "course.completed"
	EventPathProgressChanged = "path.progress.changed"
	EventPathCompleted       = "path.completed"
	EventCertificateIssued   = "certificate.issued"
)

type Event struct {
	Type       string
	LearnerID  uuid.UUID
	CourseID   *uuid.UUID
	PathID     *uuid.UUID
	LessonID   *uuid.UUID
	Percent    float64
	OccurredAt time.Time
	Data       map[string]any
}

// ProgressNotifier is the outbound side-effect channel. Publish has no error
// return on purpose: emission is at-least-attempted, failure is swallowed and
// logged, and the primary state mutation never depends on it.
type ProgressNotifier interface {
	Publish(ctx context.Context, evt Event)
}

type progressNotifier struct {
	log    *logger.Logger
	bus    redisclient.EventBus
	events repos.LearnerEventRepo
}

func NewProgressNotifier(baseLog *logger.Logger, bus redisclient.EventBus, events repos.LearnerEventRepo) ProgressNotifier {
	return &progressNotifier{
		log:    baseLog.With("service", "ProgressNotifier"),
		bus:    bus,
		events: events,
	}
}

func (n *progressNotifier) Publish(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	if n.events != nil {
		row := &types.LearnerEvent{
			ID:        uuid.New(),
			LearnerID: evt.LearnerID,
			CourseID:  evt.CourseID,
			PathID:    evt.PathID,
			LessonID:  evt.LessonID,
			Type:      evt.Type,
			CreatedAt: evt.OccurredAt,
		}
		if len(evt.Data) > 0 {
			if b, err := json.Marshal(evt.Data); err == nil {
				row.Data = datatypes.JSON(b)
			}
		}
		if err := n.events.Create(ctx, nil, []*types.LearnerEvent{row}); err != nil {
			n.log.Warn("learner event append failed", "type", evt.Type, "learner_id", evt.LearnerID, "error", err)
		}
	}

	if n.bus != nil {
		wire := redisclient.ProgressEvent{
			Type:       evt.Type,
			LearnerID:  evt.LearnerID.String(),
			Percent:    evt.Percent,
			OccurredAt: evt.OccurredAt,
			Data:       evt.Data,
		}
		if evt.CourseID != nil {
			wire.CourseID = evt.CourseID.String()
		}
		if evt.PathID != nil {
			wire.PathID = evt.PathID.String()
		}
		if evt.LessonID != nil {
			wire.LessonID = evt.LessonID.String()
		}
		if err := n.bus.Publish(ctx, wire); err != nil {
			n.log.Warn("event publish failed", "type", evt.Type, "learner_id", evt.LearnerID, "error", err)
		}
	}
}
