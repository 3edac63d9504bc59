// Package intake watches a mail-drop spool directory and turns dropped
// report files into triaged incidents. Reply noise is filtered out
// before analysis; accepted reports are persisted, optionally ticketed,
// and acknowledged back to the sender.
package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/config"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

// Spool subdirectories for handled files.
const (
	processedDir = "processed"
	rejectedDir  = "rejected"
)

// settleDelay gives writers a moment to finish after a create event
// before the file is read.
const settleDelay = 500 * time.Millisecond

// Triager runs the analysis flow for one accepted message.
type Triager interface {
	Analyze(ctx context.Context, description string) (model.Analysis, error)
}

// Ticketer creates a ticket for a triaged incident.
type Ticketer interface {
	CreateTicket(ctx context.Context, incident model.Incident) (string, error)
}

// Watcher is the long-running spool monitor. Construct with New and
// drive with Run; it processes files sequentially in one goroutine.
type Watcher struct {
	dir        string
	triager    Triager
	store      store.Store
	acker      Acknowledger
	ticketer   Ticketer
	autoTicket bool
	rescan     time.Duration
	backoff    time.Duration
	settle     time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithTicketer enables automatic ticket creation for High and Critical
// incidents, subject to the auto_ticket config switch.
func WithTicketer(t Ticketer) Option {
	return func(w *Watcher) {
		w.ticketer = t
	}
}

// WithAcknowledger replaces the acknowledger chosen from config.
func WithAcknowledger(a Acknowledger) Option {
	return func(w *Watcher) {
		w.acker = a
	}
}

// New creates a spool watcher. Acknowledgements go through SMTP when a
// relay host is configured, otherwise to sibling .ack files.
func New(cfg config.IntakeConfig, triager Triager, st store.Store, opts ...Option) *Watcher {
	w := &Watcher{
		dir:        cfg.Dir,
		triager:    triager,
		store:      st,
		autoTicket: cfg.AutoTicket,
		rescan:     time.Duration(cfg.RescanSeconds) * time.Second,
		backoff:    time.Duration(cfg.BackoffSeconds) * time.Second,
		settle:     settleDelay,
	}
	if w.rescan <= 0 {
		w.rescan = time.Minute
	}
	if w.backoff <= 0 {
		w.backoff = 5 * time.Minute
	}
	if cfg.SMTP.Host != "" {
		w.acker = NewSMTPAcker(cfg.SMTP)
	} else {
		w.acker = FileAcker{}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the spool directory until ctx is cancelled. Files already
// waiting at startup are processed first; afterwards create and write
// events trigger processing, with a periodic rescan as backstop.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{processedDir, rejectedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return eris.Wrapf(err, "intake: create %s directory", sub)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "intake: create watcher")
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(w.dir); err != nil {
		return eris.Wrapf(err, "intake: watch %s", w.dir)
	}

	log := zap.L().With(zap.String("component", "intake"))
	log.Info("watching spool directory",
		zap.String("dir", w.dir),
		zap.Duration("rescan", w.rescan),
		zap.Bool("auto_ticket", w.autoTicket),
	)

	w.sweep(ctx, log)

	ticker := time.NewTicker(w.rescan)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("intake stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return eris.New("intake: event channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.wait(ctx, w.settle) {
				log.Info("intake stopped")
				return nil
			}
			w.process(ctx, log, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return eris.New("intake: error channel closed")
			}
			log.Error("intake: watch error, backing off",
				zap.Error(err),
				zap.Duration("backoff", w.backoff),
			)
			if !w.wait(ctx, w.backoff) {
				log.Info("intake stopped")
				return nil
			}
		case <-ticker.C:
			w.sweep(ctx, log)
		}
	}
}

// wait sleeps for d unless ctx ends first. Returns false when cancelled.
func (w *Watcher) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// sweep processes every file sitting in the spool root. It backstops
// missed events and retries files whose store write failed.
func (w *Watcher) sweep(ctx context.Context, log *zap.Logger) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Error("intake: read spool directory", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		w.process(ctx, log, filepath.Join(w.dir, entry.Name()))
	}
}

// process runs the pipeline for one spool file. Failures are contained:
// logged, never returned, so one bad file cannot stop the watcher.
func (w *Watcher) process(ctx context.Context, log *zap.Logger, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ackSuffix) {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Already moved by an earlier event, or a directory.
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error("intake: read message", zap.String("file", name), zap.Error(err))
		}
		return
	}

	msg := ParseMessage(data)
	if reason, rejected := Reject(msg); rejected {
		log.Info("message rejected",
			zap.String("file", name),
			zap.String("reason", reason),
		)
		w.move(log, path, rejectedDir)
		return
	}

	w.accept(ctx, log, path, msg)
}

func (w *Watcher) accept(ctx context.Context, log *zap.Logger, path string, msg Message) {
	name := filepath.Base(path)

	analysis, err := w.triager.Analyze(ctx, msg.Body)
	if err != nil {
		log.Error("intake: analyze message", zap.String("file", name), zap.Error(err))
		w.move(log, path, rejectedDir)
		return
	}

	incident, err := w.store.CreateIncident(ctx, model.Incident{
		Description: msg.Body,
		Source:      model.SourceWatch,
		Reporter:    msg.From,
		Analysis:    analysis,
	})
	if err != nil {
		// Leave the file in place; the next rescan retries it.
		log.Error("intake: persist incident", zap.String("file", name), zap.Error(err))
		return
	}

	if w.autoTicket && w.ticketer != nil && urgentEnough(analysis.Urgency) {
		key, err := w.ticketer.CreateTicket(ctx, *incident)
		if err != nil {
			log.Warn("intake: auto-ticket failed",
				zap.String("incident", incident.Reference),
				zap.Error(err),
			)
		} else if err := w.store.SetIncidentTicket(ctx, incident.ID, key); err != nil {
			log.Warn("intake: record ticket key",
				zap.String("incident", incident.Reference),
				zap.Error(err),
			)
		} else {
			incident.TicketKey = key
			incident.Status = model.IncidentTicketed
		}
	}

	dest := w.move(log, path, processedDir)
	if dest == "" {
		dest = path
	}
	ack := Acknowledgement{Incident: *incident, To: msg.From, Subject: msg.Subject, Path: dest}
	if err := w.acker.Ack(ctx, ack); err != nil {
		log.Warn("intake: acknowledgement failed",
			zap.String("incident", incident.Reference),
			zap.Error(err),
		)
	}

	log.Info("incident created from spool",
		zap.String("file", name),
		zap.String("incident", incident.Reference),
		zap.String("urgency", string(analysis.Urgency)),
		zap.Bool("fallback", analysis.Fallback),
	)
}

// move relocates a handled file into sub and returns the new path, or
// empty when the rename failed.
func (w *Watcher) move(log *zap.Logger, path, sub string) string {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Error("intake: move message",
			zap.String("file", filepath.Base(path)),
			zap.String("to", sub),
			zap.Error(err),
		)
		return ""
	}
	return dest
}

func urgentEnough(u model.Urgency) bool {
	return u == model.UrgencyHigh || u == model.UrgencyCritical
}
