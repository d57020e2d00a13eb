package main

import (
	"log"
	"net/http"
	"time"

	"github.com/cisnemotors/leadbot/bot/engine"
	"github.com/cisnemotors/leadbot/bot/notify"
	"github.com/cisnemotors/leadbot/bot/store"
	"github.com/cisnemotors/leadbot/core/bootstrap"
	corecmd "github.com/cisnemotors/leadbot/core/cmd"
	coreconfig "github.com/cisnemotors/leadbot/core/config"
	"github.com/cisnemotors/leadbot/core/webhook"
	"github.com/cisnemotors/leadbot/core/whatsapp"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        coreconfig.Load,
		Bootstrap:         buildApp,
	})
	if err != nil {
		log.Fatalf("leadbot: %v", err)
	}
}

func buildApp(cfg *coreconfig.Config) (http.Handler, func(), error) {
	res, err := bootstrap.Run(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = res.DB.Close() }

	notifier, err := notify.NewTelegram(cfg.Notify)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	sender := whatsapp.NewClient(whatsapp.ClientOptions{
		Token:         cfg.WhatsApp.Token,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		BaseURL:       cfg.WhatsApp.APIBaseURL,
		APIVersion:    cfg.WhatsApp.APIVersion,
	})

	eng := engine.New(engine.Options{
		Store:       store.New(res.DB),
		Sender:      sender,
		Notifier:    notifier,
		Dealer:      cfg.Dealer,
		Location:    loc,
		RetryWindow: time.Duration(cfg.Engine.RetryWindowMinutes) * time.Minute,
		DelayMin:    time.Duration(cfg.Engine.TypingDelayMinMS) * time.Millisecond,
		DelayMax:    time.Duration(cfg.Engine.TypingDelayMaxMS) * time.Millisecond,
	})

	server := webhook.NewServer(webhook.Options{
		Engine:      eng,
		VerifyToken: cfg.WhatsApp.VerifyToken,
	})
	return server.Handler(), cleanup, nil
}
