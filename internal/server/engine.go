package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eternalApril/moonstone/internal/backend"
	"github.com/eternalApril/moonstone/internal/backup"
	"github.com/eternalApril/moonstone/internal/config"
	"github.com/eternalApril/moonstone/internal/resp"
	"github.com/eternalApril/moonstone/internal/store"
	"go.uber.org/zap"
)

// Engine coordinates the execution of commands against the store and manages
// the background snapshot task
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	store    *store.Store       // The engine facade over the durable backend
	backend  *backend.Backend   // Raw backend handle, needed by SAVE/BGSAVE
	cfg      *config.Config
	snap     *backup.Snapshotter
	stopBg   chan struct{} // Channel for the background tasks stop signal
	stopOnce sync.Once     // Ensures that the stop happens only once
	logger   *zap.Logger
}

// NewEngine initializes the engine, registers the basic commands, and
// if enabled in the config, starts the periodic snapshot task
func NewEngine(st *store.Store, b *backend.Backend, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	engine := Engine{
		commands: make(map[string]command),
		store:    st,
		backend:  b,
		cfg:      cfg,
		stopBg:   make(chan struct{}),
		logger:   logger,
	}
	engine.registerBasicCommand()

	if cfg.Snapshot.Enabled {
		engine.snap = backup.New(cfg.Snapshot.Filename, logger)

		if cfg.Snapshot.Interval != "" {
			go engine.startAutoSave(cfg.Snapshot.Interval)
		}
	}

	return &engine, nil
}

func (e *Engine) startAutoSave(intervalStr string) {
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		e.logger.Error("invalid snapshot interval", zap.Error(err))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go func() {
				if err := e.snap.Save(e.backend); err != nil {
					e.logger.Error("auto snapshot failed", zap.Error(err))
				}
			}()
		case <-e.stopBg:
			return
		}
	}
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("HSET", commandFunc(hset))
	e.register("HGET", commandFunc(hget))
	e.register("LPUSH", commandFunc(lpush))
	e.register("RPUSH", commandFunc(rpush))
	e.register("LPOP", commandFunc(lpop))
	e.register("RPOP", commandFunc(rpop))
	e.register("LRANGE", commandFunc(lrange))
	e.register("EXPIRE", commandFunc(expire))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("PERSIST", commandFunc(persist))
	e.register("COMMAND", commandFunc(cmd))

	e.register("SAVE", commandFunc(func(ctx *context) resp.Value {
		if e.snap == nil {
			return resp.MakeError("snapshots disabled")
		}
		if err := e.snap.Save(e.backend); err != nil {
			return resp.MakeError(err.Error())
		}
		return resp.MakeSimpleString("OK")
	}))

	e.register("BGSAVE", commandFunc(func(ctx *context) resp.Value {
		if e.snap == nil {
			return resp.MakeError("snapshots disabled")
		}
		go func() {
			if err := e.snap.Save(e.backend); err != nil {
				e.logger.Error("background snapshot failed", zap.Error(err))
			}
		}()
		return resp.MakeSimpleString("Background saving started")
	}))
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found, returns an error in the RESP format
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return resp.MakeError(fmt.Sprintf("wrong command: %s", name))
	}

	ctx := &context{
		args:  args,
		store: e.store,
	}

	return cmd.execute(ctx)
}

// Shutdown shuts down the engine and its background services correctly
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stopBg)

		if e.snap != nil {
			if err := e.snap.Save(e.backend); err != nil {
				e.logger.Error("final snapshot failed", zap.Error(err))
			}
		}

		e.store.Close()
	})
}
