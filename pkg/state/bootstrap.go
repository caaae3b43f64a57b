package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"opencodeweb/pkg/client"
	"opencodeweb/pkg/logger"
)

const (
	bootstrapAttempts = 3
	bootstrapDelay    = time.Second
)

// retry runs task up to attempts times with a fixed delay between tries.
func retry(ctx context.Context, attempts int, delay time.Duration, task func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = task()
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// Bootstrap fetches the initial snapshot: the session list plus outstanding
// permissions and questions, concurrently. The session list is mandatory
// and its failure degrades status to partial; the other two are best-effort
// and failure leaves their collections empty.
func (st *Store) Bootstrap(ctx context.Context) {
	st.setStatus(StatusLoading)

	var wg sync.WaitGroup
	var sessionErr error

	wg.Add(3)
	go func() {
		defer wg.Done()
		sessionErr = retry(ctx, bootstrapAttempts, bootstrapDelay, func() error {
			sessions, err := st.c.ListSessions(ctx)
			if err != nil {
				return err
			}
			list := make([]client.Session, 0, len(sessions))
			for _, s := range sessions {
				if s.Time.Archived != nil && *s.Time.Archived != 0 {
					continue
				}
				if s.ParentID != nil && *s.ParentID != "" {
					continue
				}
				list = append(list, s)
			}
			sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
			st.update(func(next *State) {
				next.Sessions = list
				next.SessionTotal = len(list)
				if next.ActiveSessionID == "" && len(list) > 0 {
					next.ActiveSessionID = list[0].ID
				}
			})
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		err := retry(ctx, bootstrapAttempts, bootstrapDelay, func() error {
			perms, err := st.c.ListPermissions(ctx)
			if err != nil {
				return err
			}
			grouped := map[string][]client.PermissionRequest{}
			for _, p := range perms {
				if p.SessionID == "" {
					continue
				}
				grouped[p.SessionID] = append(grouped[p.SessionID], p)
			}
			for _, list := range grouped {
				sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
			}
			st.update(func(next *State) {
				next.Permissions = grouped
			})
			return nil
		})
		if err != nil {
			logger.Debug("bootstrap_permissions_skipped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := retry(ctx, bootstrapAttempts, bootstrapDelay, func() error {
			questions, err := st.c.ListQuestions(ctx)
			if err != nil {
				return err
			}
			grouped := map[string][]client.QuestionRequest{}
			for _, q := range questions {
				if q.SessionID == "" {
					continue
				}
				grouped[q.SessionID] = append(grouped[q.SessionID], q)
			}
			for _, list := range grouped {
				sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
			}
			st.update(func(next *State) {
				next.Questions = grouped
			})
			return nil
		})
		if err != nil {
			logger.Debug("bootstrap_questions_skipped", "error", err)
		}
	}()
	wg.Wait()

	if sessionErr != nil {
		logger.Warn("bootstrap_degraded", "error", sessionErr)
		st.setStatus(StatusPartial)
		return
	}
	st.setStatus(StatusComplete)
	logger.Info("bootstrap_complete", "sessions", st.Snapshot().SessionTotal)
}
