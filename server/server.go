// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/pushover"
	"github.com/bvk/autotrader/strategy"
	"github.com/bvk/autotrader/telegram"
	"github.com/bvk/autotrader/trader"
	"github.com/bvkgo/kv"
)

type Options struct {
	// NoResume stops the server from restarting a trading session that
	// was running when the previous instance shut down.
	NoResume bool
}

// Server ties the trading engine, configuration store and messengers
// together and exposes them over HTTP handlers.
type Server struct {
	opts Options

	db kv.Database

	ex exchange.Exchange

	configs *trader.Configs

	engine *trader.Engine

	telegramClient *telegram.Client
}

func New(ctx context.Context, secrets *Secrets, db kv.Database, ex exchange.Exchange, opts *Options) (*Server, error) {
	if opts == nil {
		opts = new(Options)
	}

	s := &Server{
		opts: *opts,
		db:   db,
		ex:   ex,
	}

	var messenger trader.Messenger
	if secrets != nil && secrets.Telegram != nil {
		tc, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		s.telegramClient = tc
		messenger = tc
	} else if secrets != nil && secrets.Pushover != nil {
		pc, err := pushover.New(secrets.Pushover)
		if err != nil {
			return nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		messenger = pc
	} else {
		messenger = logMessenger{}
	}

	s.configs = trader.NewConfigs(db)
	s.engine = trader.NewEngine(db, ex, messenger, s.configs)

	if s.telegramClient != nil {
		if err := s.telegramClient.AddCommand(ctx, "status", "Prints trading engine status", s.statusTelegramCmd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) Close() error {
	s.engine.Close()
	if s.telegramClient != nil {
		return s.telegramClient.Close()
	}
	return nil
}

// Start resumes the previous trading session when the active
// configuration still carries the running marker from an unclean stop.
func (s *Server) Start(ctx context.Context) error {
	if s.opts.NoResume {
		return nil
	}
	active, err := s.configs.Active(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !active.Running {
		return nil
	}
	slog.Info("resuming trading session from previous instance", "config", active.Name)
	return s.engine.Start(ctx)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.engine.Stop(ctx)
}

// HandlerMap returns the HTTP handlers to be mounted on a server.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.TradeStartPath:     postJSONHandler(s.doTradeStart),
		api.TradeStopPath:      postJSONHandler(s.doTradeStop),
		api.TradeResetPath:     postJSONHandler(s.doTradeReset),
		api.TradeStatusPath:    postJSONHandler(s.doTradeStatus),
		api.ConfigSavePath:     postJSONHandler(s.doConfigSave),
		api.ConfigGetPath:      postJSONHandler(s.doConfigGet),
		api.ConfigListPath:     postJSONHandler(s.doConfigList),
		api.ConfigActivatePath: postJSONHandler(s.doConfigActivate),
		api.StrategySavePath:   postJSONHandler(s.doStrategySave),
		api.StrategyGetPath:    postJSONHandler(s.doStrategyGet),
		api.EventsPath:         http.HandlerFunc(s.serveEvents),
	}
}

func (s *Server) doTradeStart(ctx context.Context, req *api.TradeStartRequest) (*api.TradeStartResponse, error) {
	if err := s.engine.Start(ctx); err != nil {
		return nil, err
	}
	return &api.TradeStartResponse{ConfigName: s.engine.ConfigName()}, nil
}

func (s *Server) doTradeStop(ctx context.Context, req *api.TradeStopRequest) (*api.TradeStopResponse, error) {
	if err := s.engine.Stop(ctx); err != nil {
		return nil, err
	}
	return &api.TradeStopResponse{}, nil
}

func (s *Server) doTradeReset(ctx context.Context, req *api.TradeResetRequest) (*api.TradeResetResponse, error) {
	if err := s.engine.Reset(ctx, req.Discard); err != nil {
		return nil, err
	}
	return &api.TradeResetResponse{}, nil
}

func (s *Server) doTradeStatus(ctx context.Context, req *api.TradeStatusRequest) (*api.TradeStatusResponse, error) {
	resp := &api.TradeStatusResponse{
		Running:    s.engine.IsRunning(),
		ConfigName: s.engine.ConfigName(),
		ServerTime: time.Now(),
	}
	return resp, nil
}

func (s *Server) doConfigSave(ctx context.Context, req *api.ConfigSaveRequest) (*api.ConfigSaveResponse, error) {
	if err := s.configs.Save(ctx, req.Config); err != nil {
		return nil, err
	}
	return &api.ConfigSaveResponse{}, nil
}

func (s *Server) doConfigGet(ctx context.Context, req *api.ConfigGetRequest) (*api.ConfigGetResponse, error) {
	cfg, err := s.configs.Get(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &api.ConfigGetResponse{Config: cfg}, nil
}

func (s *Server) doConfigList(ctx context.Context, req *api.ConfigListRequest) (*api.ConfigListResponse, error) {
	cfgs, err := s.configs.List(ctx)
	if err != nil {
		return nil, err
	}
	return &api.ConfigListResponse{Configs: cfgs}, nil
}

func (s *Server) doConfigActivate(ctx context.Context, req *api.ConfigActivateRequest) (*api.ConfigActivateResponse, error) {
	if err := s.configs.Activate(ctx, req.Name); err != nil {
		return nil, err
	}
	return &api.ConfigActivateResponse{}, nil
}

func (s *Server) doStrategySave(ctx context.Context, req *api.StrategySaveRequest) (*api.StrategySaveResponse, error) {
	if err := strategy.Check(req.Strategy); err != nil {
		return nil, err
	}
	if err := strategy.SaveSettings(ctx, s.db, req.Strategy); err != nil {
		return nil, err
	}
	return &api.StrategySaveResponse{}, nil
}

func (s *Server) doStrategyGet(ctx context.Context, req *api.StrategyGetRequest) (*api.StrategyGetResponse, error) {
	cs, err := strategy.LoadSettings(ctx, s.db, req.Name)
	if err != nil {
		return nil, err
	}
	return &api.StrategyGetResponse{Strategy: cs}, nil
}

func postJSONHandler[REQ, RESP any](fn func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "expected POST request", http.StatusMethodNotAllowed)
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if c, ok := any(req).(interface{ Check() error }); ok {
			if err := c.Check(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), httpStatusCode(err))
			return
		}
		w.Header().Set("content-type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("could not encode response (ignored)", "path", r.URL.Path, "err", err)
		}
	})
}

func httpStatusCode(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// logMessenger is the fallback messenger when no notification service
// is configured.
type logMessenger struct{}

func (logMessenger) SendMessage(ctx context.Context, at time.Time, msg string) error {
	slog.Info("notification", "at", at, "message", msg)
	return nil
}
