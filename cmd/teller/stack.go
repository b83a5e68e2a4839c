package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zulandar/teller/internal/alerts"
	"github.com/zulandar/teller/internal/bank"
	"github.com/zulandar/teller/internal/config"
	"github.com/zulandar/teller/internal/coordinator"
	"github.com/zulandar/teller/internal/dispatch"
	"github.com/zulandar/teller/internal/docs"
	"github.com/zulandar/teller/internal/executor"
	"github.com/zulandar/teller/internal/llm"
	"github.com/zulandar/teller/internal/recorder"
	"github.com/zulandar/teller/internal/registry"
	"github.com/zulandar/teller/internal/tools"
	"github.com/zulandar/teller/internal/turn"
	"github.com/zulandar/teller/internal/widget"
	"gorm.io/gorm"
)

// stack bundles the wired orchestration components shared by serve and
// chat.
type stack struct {
	bank     *bank.Store
	widgets  *widget.Engine
	recorder *recorder.Recorder
	pipeline *turn.Pipeline
}

// buildStack wires stores, tools, registry, and the turn pipeline on top
// of an open database and a reasoning engine.
func buildStack(cfg *config.Config, gdb *gorm.DB, engine llm.Engine, out io.Writer) (*stack, error) {
	bankStore := bank.NewStore(gdb)
	widgets := widget.NewEngine(gdb)

	reg, err := registry.Load(gdb, tools.BuildImpls(tools.Deps{
		Bank:    bankStore,
		Docs:    docs.NewStore(gdb),
		Widgets: widgets,
		Alerts:  buildNotifier(cfg, out),
	}))
	if err != nil {
		return nil, err
	}

	rec := recorder.New(gdb)
	ex := executor.New(engine, dispatch.New(reg, 0, out), reg, out)
	pipeline := turn.New(coordinator.NewRouter(), ex, rec, cfg.TurnTimeout(), out)

	return &stack{bank: bankStore, widgets: widgets, recorder: rec, pipeline: pipeline}, nil
}

// buildNotifier assembles the configured alert channels. Channels without
// a resolvable token are skipped.
func buildNotifier(cfg *config.Config, out io.Writer) alerts.Notifier {
	var notifiers []alerts.Notifier
	if cfg.Alerts.Slack.TokenEnv != "" && cfg.Alerts.Slack.Channel != "" {
		if token := os.Getenv(cfg.Alerts.Slack.TokenEnv); token != "" {
			notifiers = append(notifiers, alerts.NewSlackNotifier(token, cfg.Alerts.Slack.Channel))
		}
	}
	if cfg.Alerts.Discord.TokenEnv != "" && cfg.Alerts.Discord.ChannelID != "" {
		if token := os.Getenv(cfg.Alerts.Discord.TokenEnv); token != "" {
			if n, err := alerts.NewDiscordNotifier(token, cfg.Alerts.Discord.ChannelID); err == nil {
				notifiers = append(notifiers, n)
			} else if out != nil {
				fmt.Fprintf(out, "alerts: discord disabled: %v\n", err)
			}
		}
	}
	return alerts.NewFanout(notifiers...)
}

// buildEngine creates the reasoning-engine client from config.
func buildEngine(cfg *config.Config) (llm.Engine, error) {
	return llm.NewClient(llm.ClientOpts{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLMAPIKey(),
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
}
