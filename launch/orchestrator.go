// Package launch stages a modpack into its instance directory, prepares the
// loader and runs the game, reporting progress as a stream of events.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"modpack-launcher/loader"
	"modpack-launcher/model"
)

// Store is the part of the modpack repository the orchestrator needs.
type Store interface {
	Get(ctx context.Context, id string) (model.Modpack, error)
	Update(ctx context.Context, id string, fn func(p *model.Modpack) error) (model.Modpack, error)
	ModsDir(id string) string
}

// Provisioner prepares the modpack's loader in the instance directory.
type Provisioner interface {
	Provision(ctx context.Context, gameVersion string, spec model.LoaderSpec, gameDir string) loader.Result
}

const defaultEventBuffer = 256

type Options struct {
	MinecraftDir string // install root shared by every instance
	InstancesDir string
	JavaPath     string
	EventBuffer  int
	Log          *zap.SugaredLogger
}

type Orchestrator struct {
	store       Store
	provisioner Provisioner
	runner      Runner
	opts        Options
	log         *zap.SugaredLogger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(store Store, provisioner Provisioner, runner Runner, opts Options) *Orchestrator {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.JavaPath == "" {
		opts.JavaPath = "java"
	}
	if opts.InstancesDir == "" {
		opts.InstancesDir = filepath.Join(opts.MinecraftDir, "instances")
	}
	return &Orchestrator{
		store:       store,
		provisioner: provisioner,
		runner:      runner,
		opts:        opts,
		log:         opts.Log,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// InstanceDir is the working directory the game runs in for a modpack.
func (o *Orchestrator) InstanceDir(modpackID string) string {
	return filepath.Join(o.opts.InstancesDir, modpackID)
}

// Active returns the running session of a modpack, if any.
func (o *Orchestrator) Active(modpackID string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[modpackID]
	return s, ok
}

// Launch prepares the modpack synchronously and then continues staging,
// provisioning and running it in the background. Failures after Preparing
// are reported through the session.
func (o *Orchestrator) Launch(ctx context.Context, modpackID string, creds model.Credentials) (*Session, error) {
	sessCtx, cancel := context.WithCancel(ctx)
	s := newSession(modpackID, o.opts.EventBuffer, cancel)

	o.mu.Lock()
	if _, busy := o.sessions[modpackID]; busy {
		o.mu.Unlock()
		cancel()
		return nil, model.NewLaunchAlreadyInProgressError(modpackID)
	}
	o.sessions[modpackID] = s
	o.mu.Unlock()

	log := o.log.With(zap.String("modpack_id", modpackID))
	s.transition(Preparing, "")

	pack, err := o.store.Get(sessCtx, modpackID)
	if err != nil {
		o.abort(log, s, err)
		return nil, err
	}
	gameDir := o.InstanceDir(modpackID)
	if err := os.MkdirAll(gameDir, 0755); err != nil {
		ioErr := model.NewIOError("could not create instance directory", err)
		o.abort(log, s, ioErr)
		return nil, ioErr
	}
	log.Infow("Preparing launch",
		zap.String("name", pack.Name),
		zap.String("game_version", pack.GameVersion),
		zap.String("loader", pack.Loader.String()),
	)

	go o.run(sessCtx, context.WithoutCancel(ctx), log, s, pack, gameDir, creds)
	return s, nil
}

func (o *Orchestrator) run(ctx, bg context.Context, log *zap.SugaredLogger, s *Session, pack model.Modpack, gameDir string, creds model.Credentials) {
	s.transition(StagingMods, "")
	copied, err := StageMods(ctx, o.store.ModsDir(pack.ID), filepath.Join(gameDir, "mods"), func(name string, done, total int) {
		s.emit(Event{Kind: EventProgress, Message: name, Progress: Progress{Type: "mods", Task: done, Total: total}})
	})
	if err != nil {
		o.abort(log, s, stageError(err))
		return
	}
	s.setStaged(copied)
	log.Infow("Mods staged", zap.Int("copied", copied))

	s.transition(ProvisioningLoader, "")
	if err := ctx.Err(); err != nil {
		o.abort(log, s, stageError(err))
		return
	}
	effective := pack.Loader.Kind
	if effective == "" {
		effective = model.LoaderVanilla
	}
	res := o.provisioner.Provision(ctx, pack.GameVersion, pack.Loader, gameDir)
	if !res.OK {
		effective = model.LoaderVanilla
		s.setNotice(res.Notice())
		s.emit(Event{Kind: EventNotice, Message: res.Notice()})
	}

	s.transition(Starting, "")
	opts, err := BuildOptions(pack, effective, creds, o.opts.MinecraftDir, gameDir, o.opts.JavaPath)
	if err != nil {
		o.abort(log, s, err)
		return
	}
	if res.OK {
		opts.ProfilePath = res.ProfilePath
	}
	if err := ctx.Err(); err != nil {
		o.endStart(log, s, stageError(err))
		return
	}
	proc, err := o.runner.Start(ctx, opts)
	if err != nil {
		o.endStart(log, s, err)
		return
	}
	s.attach(proc)
	s.transition(Running, "")
	log.Infow("Game running", zap.String("version", opts.Version()))

	for sig := range proc.Signals() {
		s.emit(Event{Kind: sig.Kind, Message: sig.Line, Progress: sig.Progress})
	}
	code, waitErr := proc.Wait()
	if s.wasStopped() {
		code = StoppedExitCode
	} else if waitErr != nil {
		log.Warnw("Game process ended abnormally", zap.Error(waitErr))
	}

	// Starting succeeded, so the play is recorded whatever the exit code.
	playedAt := o.now().UTC()
	if _, err := o.store.Update(bg, pack.ID, func(p *model.Modpack) error {
		p.LastPlayedAt = &playedAt
		return nil
	}); err != nil {
		log.Warnw("Failed to record last played time", zap.Error(err))
	}

	log.Infow("Game closed", zap.Int("code", code))
	o.release(s)
	s.finish(Closed, code, nil)
}

// endStart ends a session whose game never started. A Stop while Starting
// closes it like a stopped game; anything else aborts it.
func (o *Orchestrator) endStart(log *zap.SugaredLogger, s *Session, err error) {
	if !s.wasStopped() {
		o.abort(log, s, err)
		return
	}
	log.Infow("Launch stopped before the game started", zap.Error(err))
	o.release(s)
	s.finish(Closed, StoppedExitCode, nil)
}

func (o *Orchestrator) abort(log *zap.SugaredLogger, s *Session, err error) {
	log.Errorw("Launch aborted", zap.String("state", s.State().String()), zap.Error(err))
	o.release(s)
	s.finish(Aborted, StoppedExitCode, err)
}

func (o *Orchestrator) release(s *Session) {
	o.mu.Lock()
	if o.sessions[s.ModpackID] == s {
		delete(o.sessions, s.ModpackID)
	}
	o.mu.Unlock()
}

func stageError(err error) error {
	if _, ok := model.AsError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.NewError(model.IOError, "launch cancelled", err)
	}
	return model.NewIOError(fmt.Sprintf("staging failed: %v", err), err)
}
