// Package cleanup periodically removes spool files and status entries that
// outlived their task.
package cleanup

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/storage"
)

// Spool is the directory being swept.
type Spool interface {
	Prune(cutoff time.Time, keep func(path string) bool, log zerolog.Logger) storage.PruneResult
}

// LiveTasks is the in-process status map.
type LiveTasks interface {
	InUse(path string) bool
	PruneTerminal(cutoff time.Time) int
}

// Sweeper runs Sweep on a cron schedule.
type Sweeper struct {
	spool  Spool
	live   LiveTasks
	maxAge time.Duration
	cron   *cronlib.Cron
	now    func() time.Time
	log    zerolog.Logger
}

// NewSweeper validates the schedule ("@every 15m" or a 5-field expression)
// and returns a stopped sweeper.
func NewSweeper(schedule string, maxAge time.Duration, spool Spool, live LiveTasks, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		spool:  spool,
		live:   live,
		maxAge: maxAge,
		now:    time.Now,
		log:    log,
	}
	logger := cronLogger{log: log}
	s.cron = cronlib.New(
		cronlib.WithLogger(logger),
		cronlib.WithChain(cronlib.Recover(logger), cronlib.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info().Dur("max_age", s.maxAge).Msg("cleanup sweeper started")
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep removes spool and chunk files older than maxAge unless a live task
// still owns them, then forgets finished status entries of the same age.
func (s *Sweeper) Sweep() {
	cutoff := s.now().Add(-s.maxAge)
	res := s.spool.Prune(cutoff, s.inUse, s.log)
	pruned := s.live.PruneTerminal(cutoff)
	s.log.Debug().
		Int("files_removed", res.Removed).
		Int("files_in_use", res.Kept).
		Int("status_entries_pruned", pruned).
		Msg("cleanup sweep done")
}

func (s *Sweeper) inUse(path string) bool {
	if src, ok := audio.ChunkSource(path); ok {
		return s.live.InUse(src)
	}
	return s.live.InUse(path)
}

// cronLogger adapts zerolog to cron's logger interface.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
