package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/humanity"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/constructorio-go/internal/lifecycle"
	"github.com/GriffinCanCode/constructorio-go/internal/queue"
	"github.com/GriffinCanCode/constructorio-go/internal/shared/id"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
	"github.com/GriffinCanCode/constructorio-go/internal/tracker"
)

// Runtime holds what every tab shares
type Runtime struct {
	Local    storage.Store
	Sender   queue.Sender
	Env      humanity.Environment
	Queue    queue.Options
	Tracker  tracker.Config
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	ClientID id.ClientID
	Sessions *id.Sessions
}

// runTab replays one tab. It always ends by firing the unload signal so the
// backlog is written back, whether the script finished or ctx was cancelled.
func runTab(ctx context.Context, rt Runtime, tab Tab) error {
	logger := rt.Logger.Component(tab.Name)

	events := lifecycle.NewEmitter()
	session := storage.NewMemoryStore()
	detector := humanity.New(rt.Env, session, events, logger)

	q := queue.New(rt.Queue, queue.Deps{
		Store:   rt.Local,
		Human:   detector,
		Sender:  rt.Sender,
		Events:  events,
		Logger:  logger,
		Metrics: rt.Metrics,
	})
	defer q.Close()

	cfg := rt.Tracker
	cfg.ClientID = rt.ClientID.String()
	sessionID, started, err := rt.Sessions.Touch()
	if err != nil {
		logger.Warn("failed to persist session", zap.Error(err))
	}
	cfg.SessionID = sessionID

	t, err := tracker.New(cfg, tracker.Deps{
		Queue:   q,
		Session: session,
		Logger:  logger,
		Metrics: rt.Metrics,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", tab.Name, err)
	}
	if started {
		_ = t.TrackSessionStart()
	}

	for i, step := range tab.Steps {
		if ctx.Err() != nil {
			break
		}

		if step.Signal != "" {
			events.Emit(step.Signal)
			// Activity may have just proven the tab human
			q.Send()
			continue
		}

		if err := handlers[step.Track](t, step.Term, step.Params); err != nil {
			logger.Warn("tracking step rejected",
				zap.Int("step", i+1),
				zap.String("event", step.Track),
				zap.Error(err))
		}
	}

	if ctx.Err() == nil {
		q.Wait()
	}
	events.Emit(lifecycle.BeforeUnload)

	logger.Info("tab finished",
		zap.Int("steps", len(tab.Steps)),
		zap.Bool("human", detector.IsHuman()),
		zap.Int("backlog", len(q.Get())))
	return nil
}
